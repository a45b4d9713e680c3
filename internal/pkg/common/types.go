package common

import (
	"strings"
	"time"
)

// DateLayout 日期格式 (ISO 8601)
const DateLayout = "2006-01-02"

// ParseDate 解析 YYYY-MM-DD 日期，空字串回傳 nil
func ParseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, NewFieldError(field, "日期格式必須為 YYYY-MM-DD")
	}
	return &t, nil
}

// FormatDate 格式化日期，nil 回傳空字串
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
