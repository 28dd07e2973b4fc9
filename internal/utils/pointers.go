package utils

import (
	"strings"
	"time"
)

func StringPtr(s string) *string {
	return &s
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

// NullableString trims s and returns nil when nothing is left.
func NullableString(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
