package pipeline

import (
	"context"
	"strings"

	"github.com/blagoySimandov/rowenrich/internal/services"
)

const DefaultSystemPrompt = "You are a helpful assistant that extracts specific information from web search results."

// ExtractionStage asks a completion model to pull the requested information
// out of the previous stage's output.
type ExtractionStage struct {
	completer    services.Completer
	systemPrompt string
}

func NewExtractionStage(completer services.Completer, systemPrompt string) *ExtractionStage {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &ExtractionStage{
		completer:    completer,
		systemPrompt: systemPrompt,
	}
}

func (s *ExtractionStage) Name() string {
	return "Extraction"
}

func (s *ExtractionStage) Apply(ctx context.Context, in StageInput) (string, error) {
	completion, err := s.completer.Complete(ctx, services.CompletionRequest{
		System: s.systemPrompt,
		User:   BuildExtractionPrompt(in.Params.Render(in.Entity), in.Previous),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(completion.Text), nil
}

// BuildExtractionPrompt appends the search results to the rendered instruction.
func BuildExtractionPrompt(instruction, searchResults string) string {
	return instruction + "\n\nSearch Results:\n" + searchResults
}
