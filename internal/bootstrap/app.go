// Package bootstrap 负责配置加载与应用组件的组装。
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/cseek/xfms/internal/handler/http"
	"github.com/cseek/xfms/internal/infra/mail"
	gormpersistence "github.com/cseek/xfms/internal/infra/persistence/gorm"
	"github.com/cseek/xfms/internal/infra/setup"
	redisstate "github.com/cseek/xfms/internal/infra/state/redis"
	"github.com/cseek/xfms/internal/infra/storage"
	"github.com/cseek/xfms/internal/middleware"
	"github.com/cseek/xfms/internal/service"
)

// Config 存储从环境变量或 .env 文件加载的配置
type Config struct {
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          string
	DBName          string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	KeyPrefix       string
	JWTSecret       string
	JWTExpiryHours  int
	ServerPort      string
	LogLevel        string
	AppEnv          string
	UploadDir       string
	MaxFirmwareSize int64
	MaxReportSize   int64
	RateLimitMax    int
	RateLimitWindow time.Duration

	MailEnabled  bool
	MailHost     string
	MailPort     int
	MailUsername string
	MailPassword string
	MailFrom     string
	MailAdminTo  string
}

// LoadConfig 从环境变量加载配置，.env 文件存在时优先加载。
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // 允许只使用环境变量

	cfg := &Config{
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:     os.Getenv("REDIS_KEY_PREFIX"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		AppEnv:        os.Getenv("APP_ENV"),
		UploadDir:     os.Getenv("UPLOAD_DIR"),

		JWTExpiryHours:  24,
		MaxFirmwareSize: 1 << 30, // 1 GiB
		MaxReportSize:   50 << 20, // 50 MiB
		RateLimitMax:    100,
		RateLimitWindow: 1 * time.Second,

		MailEnabled:  os.Getenv("MAIL_ENABLED") == "true",
		MailHost:     os.Getenv("MAIL_HOST"),
		MailUsername: os.Getenv("MAIL_USERNAME"),
		MailPassword: os.Getenv("MAIL_PASSWORD"),
		MailFrom:     os.Getenv("MAIL_FROM"),
		MailAdminTo:  os.Getenv("MAIL_ADMIN_TO"),
	}
	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	cfg.MailPort, _ = strconv.Atoi(os.Getenv("MAIL_PORT"))

	if cfg.DBHost == "" {
		cfg.DBHost = "127.0.0.1"
	}
	if cfg.DBPort == "" {
		cfg.DBPort = "3306"
	}
	if cfg.DBName == "" {
		cfg.DBName = "xfms"
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "xfms:"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./uploads"
	}
	if cfg.MailPort == 0 {
		cfg.MailPort = 587
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = "xfms <noreply@example.com>"
	}
	if cfg.DBUser == "" {
		return nil, fmt.Errorf("environment variable DB_USER must be set")
	}
	if cfg.DBPassword == "" {
		return nil, fmt.Errorf("environment variable DB_PASSWORD must be set")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App 包含应用的所有组件
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	HttpServer  *http.Server
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := logrus.StandardLogger()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Infof("Logger initialized (level: %s)", logLevel.String())

	// 3. 初始化基础设施
	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	log.Info("Database initialized")

	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	if err := setup.SeedDB(db); err != nil {
		return nil, fmt.Errorf("failed to seed DB: %w", err)
	}
	log.Info("Database migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	fileStore, err := storage.NewLocalFileStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init file store: %w", err)
	}
	log.Infof("File store initialized at %s", cfg.UploadDir)

	// 4. 初始化 Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	moduleRepo := gormpersistence.NewGormModuleRepository(db)
	projectRepo := gormpersistence.NewGormProjectRepository(db)
	firmwareRepo := gormpersistence.NewGormFirmwareRepository(db)
	denylist := redisstate.NewRedisTokenDenylist(redisClient, cfg.KeyPrefix)
	log.Info("Repositories initialized")

	// 5. 初始化 Notifier
	var notifier service.Notifier = service.NopNotifier{}
	if cfg.MailEnabled {
		notifier = mail.NewMailer(cfg.MailHost, cfg.MailPort, cfg.MailUsername, cfg.MailPassword, cfg.MailFrom, cfg.MailAdminTo)
		log.Info("Mail notifier enabled")
	}

	// 6. 初始化 Services
	authService, err := service.NewAuthService(userRepo, denylist, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	userService := service.NewUserService(userRepo)
	catalogService := service.NewCatalogService(moduleRepo, projectRepo)
	firmwareService := service.NewFirmwareService(firmwareRepo, userRepo, moduleRepo, projectRepo, fileStore, notifier)
	log.Info("Services initialized")

	// 7. 初始化 Handlers
	authHandler := httpHandler.NewAuthHandler(authService)
	userHandler := httpHandler.NewUserHandler(userService)
	catalogHandler := httpHandler.NewCatalogHandler(catalogService)
	firmwareHandler := httpHandler.NewFirmwareHandler(firmwareService, cfg.MaxFirmwareSize, cfg.MaxReportSize)
	log.Info("Handlers initialized")

	// 8. 初始化 Gin Engine 和路由
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(middleware.RateLimit(redisClient, cfg.KeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow))
	// 上传接口走 multipart 流式处理，限制请求体兜底
	router.MaxMultipartMemory = 32 << 20

	authRequired := middleware.Auth(cfg.JWTSecret, denylist)

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", authRequired, authHandler.Logout)
			authRoutes.GET("/check", authRequired, authHandler.Check)
		}

		users := api.Group("/users", authRequired)
		{
			users.GET("", userHandler.List)
			users.GET("/testers", userHandler.ListTesters)
			users.POST("", userHandler.Create)
			users.PUT("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)
		}

		modules := api.Group("/modules", authRequired)
		{
			modules.GET("", catalogHandler.ListModules)
			modules.POST("", catalogHandler.CreateModule)
			modules.PUT("/:id", catalogHandler.UpdateModule)
			modules.DELETE("/:id", catalogHandler.DeleteModule)
		}

		projects := api.Group("/projects", authRequired)
		{
			projects.GET("", catalogHandler.ListProjects)
			projects.POST("", catalogHandler.CreateProject)
			projects.PUT("/:id", catalogHandler.UpdateProject)
			projects.DELETE("/:id", catalogHandler.DeleteProject)
		}

		firmwares := api.Group("/firmwares", authRequired)
		{
			firmwares.GET("", firmwareHandler.List)
			firmwares.GET("/:id", firmwareHandler.Get)
			firmwares.POST("/upload", firmwareHandler.Upload)
			firmwares.GET("/:id/download", firmwareHandler.Download)
			firmwares.PUT("/:id/status", firmwareHandler.UpdateStatus)
			firmwares.POST("/:id/assign", firmwareHandler.Assign)
			firmwares.POST("/:id/test-report", firmwareHandler.UploadTestReport)
			firmwares.GET("/:id/download-test-report", firmwareHandler.DownloadTestReport)
			firmwares.DELETE("/:id", firmwareHandler.Delete)
		}
	}
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	// 9. 初始化 HTTP Server
	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	return &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		HttpServer:  httpServer,
	}, nil
}

// Start 启动 HTTP 服务器。
func (a *App) Start() {
	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening")
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully")
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete")
}

// LoggerMiddleware 创建一个记录请求日志的 Gin 中间件
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()
		if errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}
