// Package mail 提供基于 SMTP 的通知邮件发送。
package mail

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/cseek/xfms/internal/domain"
)

// Mailer 在固件生命周期事件发生时给相关人员发通知邮件。
// 发送在独立 goroutine 中完成，失败只记日志，绝不影响请求本身。
type Mailer struct {
	dialer     *gomail.Dialer
	from       string
	adminEmail string // 上传通知的收件人
}

// NewMailer 创建 Mailer 实例。
func NewMailer(host string, port int, username, password, from, adminEmail string) *Mailer {
	return &Mailer{
		dialer:     gomail.NewDialer(host, port, username, password),
		from:       from,
		adminEmail: adminEmail,
	}
}

func (m *Mailer) send(to, subject, body string) {
	if to == "" {
		return
	}
	go func() {
		msg := gomail.NewMessage()
		msg.SetHeader("From", m.from)
		msg.SetHeader("To", to)
		msg.SetHeader("Subject", subject)
		msg.SetBody("text/html", body)
		if err := m.dialer.DialAndSend(msg); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"to":      to,
				"subject": subject,
			}).Error("Mailer: failed to send notification")
		}
	}()
}

// FirmwareUploaded 通知管理员: 新固件已上传。
func (m *Mailer) FirmwareUploaded(fw *domain.Firmware) {
	to := m.adminEmail
	subject := fmt.Sprintf("新固件上传 - %s %s %s", fw.ModuleName, fw.ProjectName, fw.Version)
	body := fmt.Sprintf(`<h2>新固件已上传</h2>
<p><strong>模块：</strong> %s</p>
<p><strong>项目：</strong> %s</p>
<p><strong>版本：</strong> %s</p>
<p><strong>上传者：</strong> %s</p>
<p>请及时处理。</p>`, fw.ModuleName, fw.ProjectName, fw.Version, fw.UploaderName)
	m.send(to, subject, body)
}

// FirmwareAssigned 通知测试人员: 固件已委派给你。
func (m *Mailer) FirmwareAssigned(fw *domain.Firmware, tester *domain.User, note string) {
	subject := fmt.Sprintf("固件测试委派 - %s %s %s", fw.ModuleName, fw.ProjectName, fw.Version)
	body := fmt.Sprintf(`<h2>固件已委派给你测试</h2>
<p><strong>模块：</strong> %s</p>
<p><strong>项目：</strong> %s</p>
<p><strong>版本：</strong> %s</p>
<p><strong>委派说明：</strong> %s</p>`, fw.ModuleName, fw.ProjectName, fw.Version, note)
	m.send(tester.Email, subject, body)
}

// FirmwareStatusChanged 通知上传者: 固件状态已更新。
func (m *Mailer) FirmwareStatusChanged(fw *domain.Firmware, newStatus, recipient string) {
	subject, body := statusChangedMail(fw, newStatus)
	m.send(recipient, subject, body)
}

// statusChangedMail 渲染状态更新邮件。
// 传入的 fw 是更新后重新查询的记录，fw.Status 已经是新状态，
// 所以只展示 newStatus，不画转移箭头。
func statusChangedMail(fw *domain.Firmware, newStatus string) (subject, body string) {
	subject = fmt.Sprintf("固件状态更新 - %s %s %s", fw.ModuleName, fw.ProjectName, fw.Version)
	body = fmt.Sprintf(`<h2>固件状态已更新</h2>
<p><strong>模块：</strong> %s</p>
<p><strong>项目：</strong> %s</p>
<p><strong>版本：</strong> %s</p>
<p><strong>状态：</strong> %s</p>`,
		fw.ModuleName, fw.ProjectName, fw.Version, domain.StatusLabel(newStatus))
	return subject, body
}
