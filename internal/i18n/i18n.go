package i18n

import "strings"

type Lang string

const (
	FA Lang = "fa"
	EN Lang = "en"
)

func FromLanguageCode(code string) Lang {
	code = strings.ToLower(strings.TrimSpace(code))
	if strings.HasPrefix(code, "fa") || strings.HasPrefix(code, "per") {
		return FA
	}
	return EN
}

func Parse(s string) Lang {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "fa":
		return FA
	case "en":
		return EN
	default:
		return FA
	}
}
