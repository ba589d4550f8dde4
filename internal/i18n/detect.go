package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Detect maps a host-provided locale tag to a supported language. Chinese
// tags (zh, zh-CN, zh-Hans, zh-Hans-CN, POSIX zh_CN.UTF-8, ...) map to
// zh-CN; everything else defaults to English. Detection runs once at process
// start; the result seeds the default translator.
func Detect(locale string) Lang {
	tag := strings.TrimSpace(locale)
	if tag == "" {
		return LangEN
	}
	// POSIX locales carry an encoding suffix and underscore separators.
	tag, _, _ = strings.Cut(tag, ".")
	tag = strings.ReplaceAll(tag, "_", "-")

	if parsed, err := language.Parse(tag); err == nil {
		if base, conf := parsed.Base(); conf != language.No && base.String() == "zh" {
			return LangZHCN
		}
		return LangEN
	}

	// Unparseable tags fall back to prefix rules, most specific first.
	switch {
	case strings.HasPrefix(tag, "zh-Hans"), strings.HasPrefix(tag, "zh-CN"):
		return LangZHCN
	case strings.HasPrefix(tag, "zh"):
		return LangZHCN
	}
	return LangEN
}
