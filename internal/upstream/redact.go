package upstream

import (
	"regexp"
	"strings"
)

// MaxExcerpt bounds how much of an upstream body reaches a client.
const MaxExcerpt = 512

const redacted = "[REDACTED]"

var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer " + redacted},
	{regexp.MustCompile(`(?i)basic\s+[A-Za-z0-9+/]{16,}=*`), "Basic " + redacted},
	{regexp.MustCompile(`(?i)"((?:access|refresh|id)_token|token|client_secret|password|authorization)"\s*:\s*"[^"]*"`), `"$1":"` + redacted + `"`},
	{regexp.MustCompile(`(?i)\b((?:access|refresh)_token|token|client_secret)=[^&\s"]+`), "$1=" + redacted},
	{regexp.MustCompile(`shp(?:at|ca|pa|ss)_[A-Za-z0-9]+`), redacted},
}

// Redact masks bearer credentials and token-like fields in s.
func Redact(s string) string {
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

// Excerpt redacts body and truncates it to MaxExcerpt bytes.
func Excerpt(body []byte) string {
	s := Redact(strings.TrimSpace(string(body)))
	if len(s) <= MaxExcerpt {
		return s
	}
	return strings.ToValidUTF8(s[:MaxExcerpt], "")
}
