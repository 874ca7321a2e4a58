package twitter

import (
	"net/url"
	"strings"
)

// DefaultBaseURL is where the bridge listens unless configured otherwise.
const DefaultBaseURL = "http://localhost:3000"

// Endpoint names used for logging, spans, rate limiting and the metrics hook.
const (
	EndpointTimeline = "Timeline"
	EndpointTweet    = "Tweet"
)

const (
	timelinePath = "/api/timeline"
	tweetPath    = "/api/tweet/"
)

// tweetURLPath returns the bridge path for a single tweet.
func tweetURLPath(id string) string {
	return tweetPath + url.PathEscape(id)
}

// joinURL appends path to the configured base URL without doubling slashes.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
