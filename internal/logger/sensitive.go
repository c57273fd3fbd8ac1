package logger

import (
	"net/url"
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

var sensitiveKeywords = []string{"password", "passwd", "secret", "token", "api_key", "apikey", "authorization"}

// credentialURLPattern matches scheme://user:pass@ prefixes such as RTSP camera URLs
var credentialURLPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^/@\s:]+:[^/@\s]+@`)

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// RedactURLCredentials replaces the userinfo part of any URL in s with [REDACTED].
func RedactURLCredentials(s string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	return credentialURLPattern.ReplaceAllString(s, "${1}"+redactedValue+"@")
}

// SanitizeURL returns a loggable form of raw with credentials and query removed.
// Unparseable input is returned with credentials redacted.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return RedactURLCredentials(raw)
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
