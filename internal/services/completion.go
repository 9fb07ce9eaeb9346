package services

import "context"

// CompletionRequest is a single-turn chat request.
type CompletionRequest struct {
	System string
	User   string
}

type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
}

type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
