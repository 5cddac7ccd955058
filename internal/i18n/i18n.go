package i18n

import (
	"fmt"
	"strings"

	"github.com/bookstore-next/internal/constants"

	"github.com/gin-gonic/gin"
)

const (
	// LocaleZH 简体中文
	LocaleZH = constants.LocaleZhCN
	// LocaleEN 英文
	LocaleEN = constants.LocaleEnUS
)

// T 按语言获取文案，缺失时回退到中文，再回退到 key 本身
func T(locale, key string) string {
	normalized := normalizeLocale(locale)
	if messages, ok := catalog[normalized]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	if msg, ok := catalog[LocaleZH][key]; ok {
		return msg
	}
	return key
}

// Sprintf 按语言获取带参数文案
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// ResolveLocale 从请求头解析站点语言
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return LocaleZH
	}
	if locale := normalizeLocale(c.GetHeader("X-Locale")); locale != "" {
		return locale
	}
	if locale := matchAcceptLanguage(c.GetHeader("Accept-Language")); locale != "" {
		return locale
	}
	return LocaleZH
}

func normalizeLocale(locale string) string {
	trimmed := strings.TrimSpace(locale)
	if trimmed == "" {
		return ""
	}
	lowered := strings.ToLower(trimmed)
	for _, supported := range constants.SupportedLocales {
		if strings.ToLower(supported) == lowered {
			return supported
		}
	}
	return ""
}

func matchAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		if locale := normalizeLocale(tag); locale != "" {
			return locale
		}
		lowered := strings.ToLower(tag)
		if strings.HasPrefix(lowered, "zh") {
			return LocaleZH
		}
		if strings.HasPrefix(lowered, "en") {
			return LocaleEN
		}
	}
	return ""
}
