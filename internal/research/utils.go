package research

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

func trimToRunes(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	return string([]rune(raw)[:limit])
}

func collapseSpaces(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// canonicalURL treats the query string as part of the page identity.
func canonicalURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""
	return parsed.String()
}

func canonicalOrRawURL(rawURL string) string {
	canonical := canonicalURL(rawURL)
	if canonical != "" {
		return canonical
	}
	return strings.TrimSpace(rawURL)
}

func appendUniqueWarning(warnings []string, warning string) []string {
	trimmed := strings.TrimSpace(warning)
	if trimmed == "" {
		return warnings
	}
	for _, existing := range warnings {
		if strings.EqualFold(strings.TrimSpace(existing), trimmed) {
			return warnings
		}
	}
	return append(warnings, trimmed)
}

func emitProgress(onProgress func(Progress), progress Progress) {
	if onProgress == nil {
		return
	}
	onProgress(progress)
}
