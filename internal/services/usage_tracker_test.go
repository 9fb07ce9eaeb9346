package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageTrackerPerRun(t *testing.T) {
	tracker := NewUsageTracker()
	a := ContextWithRunID(context.Background(), "a")
	b := ContextWithRunID(context.Background(), "b")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.AddSearchQueries(a, 1)
			tracker.AddTokens(b, 3, 1)
		}()
	}
	wg.Wait()
	tracker.AddOCRPages(a, 2)

	assert.Equal(t, 10, tracker.Usage("a").SearchQueries)
	assert.Equal(t, 2, tracker.Usage("a").OCRPages)
	assert.Equal(t, 30, tracker.Usage("b").TokensIn)
	assert.Equal(t, 10, tracker.Usage("b").TokensOut)

	tracker.Forget("a")
	assert.Zero(t, tracker.Usage("a"))
}

func TestRunIDFromContext(t *testing.T) {
	assert.Equal(t, "", RunIDFromContext(context.Background()))
	assert.Equal(t, "r", RunIDFromContext(ContextWithRunID(context.Background(), "r")))
}
