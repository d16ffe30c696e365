// Package validation 请求参数校验
package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	sessionIDPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

	validate = validator.New()
)

// IsSessionID 是否为 RFC 4122 格式的 UUID
func IsSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// NormalizeEmail 去除首尾空白并转小写，格式非法时返回 false
func NormalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", false
	}
	return email, true
}
