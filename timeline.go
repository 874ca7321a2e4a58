package twitter

import (
	"context"
	"fmt"
	"net/http"
)

// defaultTimelineCount is used when count is not positive.
const defaultTimelineCount = 20

// FetchTimeline fetches up to count home-timeline tweets.
func (c *Client) FetchTimeline(ctx context.Context, count int) ([]*Post, error) {
	return c.fetchTimeline(ctx, count, false)
}

// FetchTimelineWithReplies fetches timeline tweets including replies.
func (c *Client) FetchTimelineWithReplies(ctx context.Context, count int) ([]*Post, error) {
	return c.fetchTimeline(ctx, count, true)
}

// FetchLatest returns the newest timeline tweet, or ErrEmptyResult.
func (c *Client) FetchLatest(ctx context.Context) (*Post, error) {
	posts, err := c.FetchTimeline(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrEmptyResult
	}
	return posts[0], nil
}

// FetchByID fetches one tweet.
func (c *Client) FetchByID(ctx context.Context, id string) (*Post, error) {
	env, err := c.execute(ctx, EndpointTweet, http.MethodGet, tweetURLPath(id), nil)
	if err != nil {
		return nil, fmt.Errorf("Tweet %s: %w", id, err)
	}
	post, err := parseSinglePost(env.Data, c.now())
	if err != nil {
		return nil, fmt.Errorf("Tweet %s: %w", id, err)
	}
	return post, nil
}

func (c *Client) fetchTimeline(ctx context.Context, count int, includeReplies bool) ([]*Post, error) {
	if count <= 0 {
		count = defaultTimelineCount
	}
	body := map[string]any{"count": count}
	if includeReplies {
		body["includeReplies"] = true
	}

	env, err := c.execute(ctx, EndpointTimeline, http.MethodPost, timelinePath, body)
	if err != nil {
		return nil, fmt.Errorf("Timeline: %w", err)
	}
	posts, err := parsePostList(env.Data, c.now())
	if err != nil {
		return nil, fmt.Errorf("parse Timeline: %w", err)
	}
	return posts, nil
}

// Search is not supported by the bridge.
func (c *Client) Search(ctx context.Context, query string, count int) ([]*Post, error) {
	return nil, fmt.Errorf("search: %w", ErrNotImplemented)
}

// FetchProfile is not supported by the bridge.
func (c *Client) FetchProfile(ctx context.Context, username string) (*Profile, error) {
	return nil, fmt.Errorf("profile retrieval: %w", ErrNotImplemented)
}

// Trend is a trending topic.
type Trend struct {
	Name       string `json:"name"`
	Query      string `json:"query"`
	TweetCount int    `json:"tweetCount"`
}

// FetchTrends is not supported by the bridge.
func (c *Client) FetchTrends(ctx context.Context, location string) ([]Trend, error) {
	return nil, fmt.Errorf("trends: %w", ErrNotImplemented)
}

// FetchMentions is not supported by the bridge.
func (c *Client) FetchMentions(ctx context.Context, count int) ([]*Post, error) {
	return nil, fmt.Errorf("mentions: %w", ErrNotImplemented)
}
