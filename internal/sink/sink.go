// Package sink writes result records to CSV files, GCS objects and Google
// Sheets ranges.
package sink

import (
	"context"
	"fmt"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

// Exporter writes results in order and reports the bytes or cells written.
type Exporter interface {
	Export(ctx context.Context, results []models.ResultRecord) (int64, error)
}

const (
	columnEntity = "entity"
	columnStatus = "status"
)

// Grid renders results as a header row followed by one row per result. The
// header is entity, extracted_info, status and then any other derived field
// in first-seen order.
func Grid(results []models.ResultRecord) [][]string {
	header := []string{columnEntity, models.FieldExtractedInfo, columnStatus}
	seen := map[string]bool{models.FieldExtractedInfo: true}
	var extra []string
	for _, r := range results {
		for _, f := range r.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				extra = append(extra, f.Name)
			}
		}
	}
	header = append(header, extra...)

	grid := make([][]string, 0, len(results)+1)
	grid = append(grid, header)
	for _, r := range results {
		row := make([]string, 0, len(header))
		row = append(row, r.Entity, r.ExtractedInfo(), string(r.Status))
		for _, name := range extra {
			v, _ := r.Field(name)
			row = append(row, v)
		}
		grid = append(grid, row)
	}
	return grid
}

func unwritable(dest string, err error) error {
	return &models.Error{Kind: models.ErrDestinationUnwritable, Op: "export " + dest, Err: err}
}

func wrapf(dest, format string, args ...any) error {
	return unwritable(dest, fmt.Errorf(format, args...))
}
