package cookies

import "strings"

// HeaderValue returns the value of name in a "a=1; b=2" cookie header, or ""
// when absent.
func HeaderValue(header, name string) string {
	prefix := name + "="
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, prefix) {
			return strings.TrimPrefix(part, prefix)
		}
	}
	return ""
}
