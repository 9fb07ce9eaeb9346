package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

func TestParseFlags(t *testing.T) {
	_, err := parseFlags([]string{"-column", "company"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-source", "in.csv"})
	assert.Error(t, err)

	o, err := parseFlags([]string{"-source", "in.csv", "-preview", "5"})
	require.NoError(t, err)
	assert.Equal(t, 5, o.preview)

	o, err = parseFlags([]string{"-source", "in.csv", "-column", "company", "-limit", "10"})
	require.NoError(t, err)
	assert.Equal(t, "company", o.column)
	assert.Equal(t, 10, o.limit)
	assert.Equal(t, models.DefaultSearchTemplate, o.prompt)
}

func TestStageSpecsFromFlags(t *testing.T) {
	o := &options{stages: "search, extract,ocr", prompt: "p {entity}", extract: "e {entity}"}
	specs, err := o.stageSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 3)
	assert.Equal(t, models.StageSpec{Kind: models.StageKindSearch, Params: models.StageParams{Template: "p {entity}"}}, specs[0])
	assert.Equal(t, "e {entity}", specs[1].Params.Template)
	assert.Equal(t, models.DefaultPlaceholder, specs[2].Params.Template)

	o.stages = "search,translate"
	_, err = o.stageSpecs()
	assert.Error(t, err)
}

func TestStageSpecsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- kind: search
  params:
    template: "ceo of {company}"
- kind: extract
  field: ceo
  params:
    template: "name the CEO of {company}"
`), 0o644))

	o := &options{stagesFile: path}
	specs, err := o.stageSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "ceo of {company}", specs[0].Params.Template)
	assert.Equal(t, "ceo", specs[1].Field)
}

func TestSummaryLine(t *testing.T) {
	line := summaryLine(&models.RunSummary{
		RunID:     "run-1",
		Status:    models.RunStatusCompleted,
		Total:     2,
		Completed: 2,
		Failed:    1,
	})
	assert.Equal(t, "run run-1 COMPLETED: 2/2 processed, 1 failed", line)
}
