package auth

import "errors"

var (
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrCompanyIDRequired      = errors.New("company ID is required")
	ErrAdminPrivilegeRequired = errors.New("admin privilege required")
)
