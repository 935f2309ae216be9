package common

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// StringPtr 回傳字串指標
func StringPtr(s string) *string {
	return &s
}

// NilIfBlank 空白字串回傳 nil，否則回傳去除前後空白後的指標
func NilIfBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
