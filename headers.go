package twitter

// defaultUserAgent identifies this client to the bridge.
const defaultUserAgent = "TwitterClient/1.0"

// bridgeHeaders returns the headers sent with every bridge request.
func bridgeHeaders(cookieHeader, userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return map[string]string{
		"content-type": "application/json",
		"accept":       "application/json",
		"cookie":       cookieHeader,
		"user-agent":   userAgent,
	}
}

// bridgeHeaderOrder is the header order used by the stealth transport.
var bridgeHeaderOrder = []string{
	"content-type",
	"accept",
	"cookie",
	"user-agent",
}
