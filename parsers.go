package twitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
)

// --- Raw bridge records ---

type rawProfile struct {
	ID          json.RawMessage `json:"id"`
	Username    string          `json:"username"`
	DisplayName string          `json:"displayName"`
	Bio         string          `json:"bio"`
	Avatar      string          `json:"avatar"`
	Verified    bool            `json:"verified"`
	Followers   int             `json:"followers"`
	Following   int             `json:"following"`
	Location    string          `json:"location"`
	URL         string          `json:"url"`
	JoinDate    json.RawMessage `json:"joinDate"`
	TweetCount  int             `json:"tweetCount"`
	PinnedTweet string          `json:"pinnedTweet"`
}

type rawPost struct {
	ID             json.RawMessage    `json:"id"`
	Text           string             `json:"text"`
	User           *rawProfile        `json:"user"`
	CreatedAt      json.RawMessage    `json:"createdAt"`
	Engagement     *EngagementMetrics `json:"engagement"`
	Features       json.RawMessage    `json:"features"`
	URLs           []map[string]any   `json:"urls"`
	Hashtags       []string           `json:"hashtags"`
	Mentions       []string           `json:"mentions"`
	Media          []map[string]any   `json:"media"`
	IsRetweet      bool               `json:"isRetweet"`
	IsReply        bool               `json:"isReply"`
	IsThread       bool               `json:"isThread"`
	ThreadPosition *int               `json:"threadPosition"`
	QuotedTweet    map[string]any     `json:"quotedTweet"`
	RetweetedTweet map[string]any     `json:"retweetedTweet"`
}

// --- Envelope data decoding ---

// parsePostList decodes an envelope data array. Absent or null data is an
// empty list.
func parsePostList(data json.RawMessage, now time.Time) ([]*Post, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var raw []rawPost
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode timeline: %v", ErrMalformedResponse, err)
	}
	posts := make([]*Post, 0, len(raw))
	for i := range raw {
		p, err := normalizePost(raw[i], now)
		if err != nil {
			return nil, fmt.Errorf("%w: timeline item %d: %v", ErrMalformedResponse, i, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// parseSinglePost decodes an envelope data object.
func parseSinglePost(data json.RawMessage, now time.Time) (*Post, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, ErrEmptyResult
	}
	var raw rawPost
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode tweet: %v", ErrMalformedResponse, err)
	}
	p, err := normalizePost(raw, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return p, nil
}

// --- Normalization ---

// normalizePost fills defaults for everything the bridge may omit. Features
// are always recomputed from the text; upstream values are not trusted.
func normalizePost(r rawPost, now time.Time) (*Post, error) {
	createdAt, ok := parseTimestamp(r.CreatedAt)
	if !ok {
		createdAt = now
	}

	var engagement EngagementMetrics
	if r.Engagement != nil {
		engagement = *r.Engagement
	}
	if err := engagement.Validate(); err != nil {
		return nil, err
	}

	var author Profile
	if r.User != nil {
		author = normalizeProfile(*r.User)
	}

	return &Post{
		ID:             parseID(r.ID),
		Text:           r.Text,
		Author:         author,
		CreatedAt:      createdAt,
		Engagement:     engagement,
		Features:       detectFeatures(r.Text, len(r.Media) > 0),
		URLs:           nonNil(r.URLs),
		Hashtags:       nonNil(r.Hashtags),
		Mentions:       nonNil(r.Mentions),
		Media:          nonNil(r.Media),
		IsRetweet:      r.IsRetweet,
		IsReply:        r.IsReply,
		IsThread:       r.IsThread,
		ThreadPosition: r.ThreadPosition,
		QuotedPost:     r.QuotedTweet,
		RetweetedPost:  r.RetweetedTweet,
	}, nil
}

// normalizeProfile never fails; a bad joinDate is left unset.
func normalizeProfile(r rawProfile) Profile {
	p := Profile{
		ID:            parseID(r.ID),
		Username:      r.Username,
		DisplayName:   r.DisplayName,
		Bio:           r.Bio,
		Avatar:        r.Avatar,
		Verified:      r.Verified,
		Followers:     r.Followers,
		Following:     r.Following,
		Location:      r.Location,
		URL:           r.URL,
		TweetCount:    r.TweetCount,
		PinnedTweetID: r.PinnedTweet,
	}
	if t, ok := parseTimestamp(r.JoinDate); ok {
		p.JoinDate = &t
	}
	return p
}

// detectFeatures derives lexical signals only; no sentiment or topic analysis.
func detectFeatures(text string, hasMedia bool) ContentFeatures {
	return ContentFeatures{
		HasQuestion: strings.Contains(text, "?"),
		HasMedia:    hasMedia,
		HasLinks:    strings.Contains(strings.ToLower(text), "http"),
		HasHashtags: strings.Contains(text, "#"),
		HasMentions: strings.Contains(text, "@"),
		Length:      utf8.RuneCountInString(text),
		WordCount:   len(strings.Fields(text)),
		Sentiment:   SentimentNeutral,
		Topics:      []string{},
		Language:    "en",
	}
}

// parseTimestamp accepts a date string in any common layout or a unix
// timestamp in seconds or milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return time.Time{}, false
		}
		t, err := dateparse.ParseAny(s)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		if n > 1e12 {
			return time.UnixMilli(int64(n)).UTC(), true
		}
		return time.Unix(int64(n), 0).UTC(), true
	}
	return time.Time{}, false
}

// parseID accepts string or numeric ids. Numbers keep their literal digits,
// so 64-bit snowflake ids survive without float rounding.
func parseID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// --- Strict decoding ---

// DecodePost strictly decodes a stored or serialized post record. Unlike the
// bridge normalizer it requires a valid createdAt, trusts the features block
// and validates every nested value.
func DecodePost(data []byte) (*Post, error) {
	var r rawPost
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	createdAt, ok := parseTimestamp(r.CreatedAt)
	if !ok {
		if len(r.CreatedAt) == 0 || string(r.CreatedAt) == "null" {
			return nil, errors.New("decode post: createdAt is required")
		}
		return nil, fmt.Errorf("decode post: invalid date format: %s", r.CreatedAt)
	}

	var engagement EngagementMetrics
	if r.Engagement != nil {
		engagement = *r.Engagement
	}
	if err := engagement.Validate(); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}

	features := ContentFeatures{
		Length:    utf8.RuneCountInString(r.Text),
		WordCount: len(strings.Fields(r.Text)),
	}
	if len(r.Features) > 0 && string(r.Features) != "null" {
		if err := json.Unmarshal(r.Features, &features); err != nil {
			return nil, fmt.Errorf("decode post features: %w", err)
		}
	}
	if features.Sentiment == "" {
		features.Sentiment = SentimentNeutral
	}
	if features.Language == "" {
		features.Language = "en"
	}
	if features.Topics == nil {
		features.Topics = []string{}
	}
	if err := features.Validate(); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}

	var author Profile
	if r.User != nil {
		author = normalizeProfile(*r.User)
	}

	return &Post{
		ID:             parseID(r.ID),
		Text:           r.Text,
		Author:         author,
		CreatedAt:      createdAt,
		Engagement:     engagement,
		Features:       features,
		URLs:           nonNil(r.URLs),
		Hashtags:       nonNil(r.Hashtags),
		Mentions:       nonNil(r.Mentions),
		Media:          nonNil(r.Media),
		IsRetweet:      r.IsRetweet,
		IsReply:        r.IsReply,
		IsThread:       r.IsThread,
		ThreadPosition: r.ThreadPosition,
		QuotedPost:     r.QuotedTweet,
		RetweetedPost:  r.RetweetedTweet,
	}, nil
}
