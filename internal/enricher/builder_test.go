package enricher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

func TestSpecsFromProcessRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         models.ProcessRequest
		wantSearch  string
		wantExtract string
	}{
		{
			name:        "both templates",
			req:         models.ProcessRequest{PromptTemplate: "a {entity}", ExtractTemplate: "b {entity}"},
			wantSearch:  "a {entity}",
			wantExtract: "b {entity}",
		},
		{
			name:        "extract falls back to prompt",
			req:         models.ProcessRequest{PromptTemplate: "a {entity}"},
			wantSearch:  "a {entity}",
			wantExtract: "a {entity}",
		},
		{
			name:        "defaults",
			wantSearch:  models.DefaultSearchTemplate,
			wantExtract: models.DefaultSearchTemplate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs := SpecsFromProcessRequest(&tt.req)
			require.Len(t, specs, 2)
			assert.Equal(t, models.StageKindSearch, specs[0].Kind)
			assert.Equal(t, tt.wantSearch, specs[0].Params.Template)
			assert.Equal(t, models.StageKindExtract, specs[1].Kind)
			assert.Equal(t, tt.wantExtract, specs[1].Params.Template)
		})
	}
}

func TestSpecsFromProcessRequestExplicitStages(t *testing.T) {
	stages := []models.StageSpec{{Kind: models.StageKindOCR}}
	assert.Equal(t, stages, SpecsFromProcessRequest(&models.ProcessRequest{PromptTemplate: "x {entity}", Stages: stages}))
}

func TestBuildDefaultsFields(t *testing.T) {
	b := NewStageBuilder(&stubSearcher{}, stubCompleter{}, nil, BuilderConfig{CacheSearches: true})
	bindings, err := b.Build([]models.StageSpec{
		{Kind: models.StageKindSearch, Params: models.StageParams{Template: "q {entity}"}},
		{Kind: models.StageKindExtract, Params: models.StageParams{Template: "e {entity}"}, Field: "email"},
	})
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, "Search", bindings[0].Stage.Name())
	assert.Equal(t, models.FieldSearchResults, bindings[0].Field)
	assert.Equal(t, "Extraction", bindings[1].Stage.Name())
	assert.Equal(t, "email", bindings[1].Field)
}

func TestBuildMissingBackend(t *testing.T) {
	b := NewStageBuilder(nil, nil, nil, BuilderConfig{})
	for _, kind := range []string{models.StageKindSearch, models.StageKindExtract, models.StageKindOCR, "translate"} {
		_, err := b.Build([]models.StageSpec{{Kind: kind, Params: models.StageParams{Template: "{entity}"}}})
		assert.ErrorIs(t, err, models.ErrStageConfig, kind)
	}
}
