package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/blagoySimandov/rowenrich/internal/models"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleCSEClient queries the Google Programmable Search (Custom Search) API.
type GoogleCSEClient struct {
	srv      *customsearch.Service
	engineID string
	tracker  IUsageTracker
}

// NewGoogleCSEClient builds a client for engineID. opts are passed to the
// generated service, e.g. option.WithAPIKey or option.WithEndpoint.
func NewGoogleCSEClient(ctx context.Context, engineID string, tracker IUsageTracker, opts ...option.ClientOption) (*GoogleCSEClient, error) {
	srv, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}
	if tracker == nil {
		tracker = noopTracker{}
	}
	return &GoogleCSEClient{srv: srv, engineID: engineID, tracker: tracker}, nil
}

func (c *GoogleCSEClient) Search(ctx context.Context, query string, num int) (*models.SearchResults, error) {
	call := c.srv.Cse.List().Context(ctx).Cx(c.engineID).Q(query)
	if num > 0 {
		// the API caps a page at 10 results
		call = call.Num(int64(min(num, 10)))
	}

	resp, err := call.Do()
	c.tracker.AddSearchQueries(ctx, 1)
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, &ServiceError{Service: "google-cse", StatusCode: gerr.Code, Body: gerr.Message, Err: err}
		}
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	result := &models.SearchResults{Query: query}
	for i, item := range resp.Items {
		result.Organic = append(result.Organic, models.OrganicResult{
			Title:    item.Title,
			Link:     item.Link,
			Snippet:  item.Snippet,
			Position: i + 1,
		})
	}
	return result, nil
}
