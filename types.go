package mealprep

import (
	"context"
	"net/http"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SlackClient posts plain-text notifications (timeline summaries, conflict reports).
type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}
