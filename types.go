package twitter

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"
)

// Profile represents a Twitter/X account profile.
type Profile struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	DisplayName   string     `json:"displayName"`
	Bio           string     `json:"bio"`
	Avatar        string     `json:"avatar,omitempty"`
	Verified      bool       `json:"verified"`
	Followers     int        `json:"followers"`
	Following     int        `json:"following"`
	Location      string     `json:"location,omitempty"`
	URL           string     `json:"url,omitempty"`
	JoinDate      *time.Time `json:"joinDate,omitempty"`
	TweetCount    int        `json:"tweetCount"`
	PinnedTweetID string     `json:"pinnedTweet,omitempty"`
}

// FollowerRatio returns followers/following. With no following it is +Inf
// when there are followers and 0 otherwise.
func (p Profile) FollowerRatio() float64 {
	if p.Following == 0 {
		if p.Followers > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return float64(p.Followers) / float64(p.Following)
}

// IsInfluential reports verified accounts, accounts with at least 5000
// followers, or a finite follower ratio of 5 or more.
func (p Profile) IsInfluential() bool {
	r := p.FollowerRatio()
	return p.Verified || p.Followers >= 5000 || (!math.IsInf(r, 1) && r >= 5)
}

// EngagementMetrics are the interaction counters of a post.
type EngagementMetrics struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
	Replies  int `json:"replies"`
	Views    int `json:"views"`
}

// Validate rejects negative counters.
func (m EngagementMetrics) Validate() error {
	if m.Likes < 0 || m.Retweets < 0 || m.Replies < 0 || m.Views < 0 {
		return fmt.Errorf("engagement metrics cannot be negative: %+v", m)
	}
	return nil
}

// Total returns likes + retweets + replies. Views are not engagements.
func (m EngagementMetrics) Total() int {
	return m.Likes + m.Retweets + m.Replies
}

// Rate returns Total/Views, or 0 without views.
func (m EngagementMetrics) Rate() float64 {
	if m.Views == 0 {
		return 0
	}
	return float64(m.Total()) / float64(m.Views)
}

// Sentiment labels accepted by ContentFeatures.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// ContentFeatures are lightweight lexical signals about a post's text.
type ContentFeatures struct {
	HasQuestion bool     `json:"hasQuestion"`
	HasMedia    bool     `json:"hasMedia"`
	HasLinks    bool     `json:"hasLinks"`
	HasHashtags bool     `json:"hasHashtags"`
	HasMentions bool     `json:"hasMentions"`
	Length      int      `json:"length"`
	WordCount   int      `json:"wordCount"`
	Sentiment   string   `json:"sentiment"`
	Topics      []string `json:"topics"`
	Language    string   `json:"language"`
}

// Validate checks the sentiment label.
func (f ContentFeatures) Validate() error {
	if !slices.Contains([]string{SentimentPositive, SentimentNegative, SentimentNeutral}, f.Sentiment) {
		return fmt.Errorf("invalid sentiment %q", f.Sentiment)
	}
	return nil
}

// IsEngaging reports questions, media, positive sentiment or any topic.
func (f ContentFeatures) IsEngaging() bool {
	return f.HasQuestion || f.HasMedia || f.Sentiment == SentimentPositive || len(f.Topics) > 0
}

// Post represents a single tweet as returned by the bridge.
type Post struct {
	ID             string            `json:"id"`
	Text           string            `json:"text"`
	Author         Profile           `json:"user"`
	CreatedAt      time.Time         `json:"createdAt"`
	Engagement     EngagementMetrics `json:"engagement"`
	Features       ContentFeatures   `json:"features"`
	URLs           []map[string]any  `json:"urls"`
	Hashtags       []string          `json:"hashtags"`
	Mentions       []string          `json:"mentions"`
	Media          []map[string]any  `json:"media"`
	IsRetweet      bool              `json:"isRetweet"`
	IsReply        bool              `json:"isReply"`
	IsThread       bool              `json:"isThread"`
	ThreadPosition *int              `json:"threadPosition,omitempty"`
	QuotedPost     map[string]any    `json:"quotedTweet,omitempty"`
	RetweetedPost  map[string]any    `json:"retweetedTweet,omitempty"`
}

// Age returns how long before now the post was created.
func (p Post) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}

// Recommendation action types.
const (
	ActionLike     = "like"
	ActionRetweet  = "retweet"
	ActionReply    = "reply"
	ActionFollow   = "follow"
	ActionUnfollow = "unfollow"
	ActionMute     = "mute"
	ActionBlock    = "block"
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

var (
	validActions    = []string{ActionLike, ActionRetweet, ActionReply, ActionFollow, ActionUnfollow, ActionMute, ActionBlock}
	validPriorities = []string{PriorityHigh, PriorityMedium, PriorityLow}
)

// highConfidence is the score at which a recommendation counts as confident.
const highConfidence = 0.8

// Recommendation is a suggested action on a post or account, produced by
// consumers of the client and exchanged as JSON.
type Recommendation struct {
	ActionType       string  `json:"actionType"`
	TargetID         string  `json:"targetId"`
	TargetType       string  `json:"targetType"`
	Priority         string  `json:"priority"`
	ConfidenceScore  float64 `json:"confidenceScore"`
	Reasoning        string  `json:"reasoning"`
	TimingSuggestion string  `json:"timingSuggestion"`
}

// NewRecommendation returns a validated recommendation with the default
// priority, confidence and timing.
func NewRecommendation(actionType, targetID, targetType string) (Recommendation, error) {
	r := Recommendation{
		ActionType:       actionType,
		TargetID:         targetID,
		TargetType:       targetType,
		Priority:         PriorityMedium,
		ConfidenceScore:  0.5,
		TimingSuggestion: "immediate",
	}
	return r, r.Validate()
}

// Validate checks the action type, priority and confidence range.
func (r Recommendation) Validate() error {
	if !slices.Contains(validActions, r.ActionType) {
		return fmt.Errorf("invalid action_type %q, must be one of %v", r.ActionType, validActions)
	}
	if !slices.Contains(validPriorities, r.Priority) {
		return fmt.Errorf("invalid priority %q, must be one of %v", r.Priority, validPriorities)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("invalid confidence_score %g, must be between 0.0 and 1.0", r.ConfidenceScore)
	}
	return nil
}

// IsHighConfidence reports a confidence score of at least 0.8.
func (r Recommendation) IsHighConfidence() bool {
	return r.ConfidenceScore >= highConfidence
}

// UnmarshalJSON accepts both camelCase and snake_case keys, fills the
// defaults for absent optional fields and validates the result.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	var raw struct {
		ActionType       *string  `json:"actionType"`
		ActionTypeSnake  *string  `json:"action_type"`
		TargetID         *string  `json:"targetId"`
		TargetIDSnake    *string  `json:"target_id"`
		TargetType       *string  `json:"targetType"`
		TargetTypeSnake  *string  `json:"target_type"`
		Priority         *string  `json:"priority"`
		Confidence       *float64 `json:"confidenceScore"`
		ConfidenceSnake  *float64 `json:"confidence_score"`
		Reasoning        string   `json:"reasoning"`
		TimingSuggestion *string  `json:"timingSuggestion"`
		TimingSnake      *string  `json:"timing_suggestion"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Recommendation{
		ActionType:       firstOf(raw.ActionTypeSnake, raw.ActionType, ""),
		TargetID:         firstOf(raw.TargetIDSnake, raw.TargetID, ""),
		TargetType:       firstOf(raw.TargetTypeSnake, raw.TargetType, ""),
		Priority:         firstOf(raw.Priority, nil, PriorityMedium),
		ConfidenceScore:  firstOf(raw.ConfidenceSnake, raw.Confidence, 0.5),
		Reasoning:        raw.Reasoning,
		TimingSuggestion: firstOf(raw.TimingSnake, raw.TimingSuggestion, "immediate"),
	}
	return r.Validate()
}

// firstOf returns the first non-nil value, or def.
func firstOf[T any](a, b *T, def T) T {
	switch {
	case a != nil:
		return *a
	case b != nil:
		return *b
	}
	return def
}
