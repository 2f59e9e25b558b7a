package service

import "errors"

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInvalidInput         = errors.New("invalid input")
	ErrDuplicateName        = errors.New("name already exists")
	ErrDuplicateUsername    = errors.New("username already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrModuleNotFound       = errors.New("module not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrFirmwareNotFound     = errors.New("firmware not found")
	ErrFileNotFound         = errors.New("file not found")
	ErrCatalogInUse         = errors.New("entry is referenced by existing firmware")
	ErrStateConflict        = errors.New("firmware is not in a state that allows this operation")
	ErrInternalServer       = errors.New("internal server error")
)
