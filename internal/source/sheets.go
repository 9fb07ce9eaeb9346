package source

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

const DefaultSheetRange = "A1:ZZ"

// Sheet loads a Google Sheets range whose first row is the header.
type Sheet struct {
	srv           *sheets.Service
	spreadsheetID string
	readRange     string
}

func NewSheet(srv *sheets.Service, spreadsheetID, readRange string) *Sheet {
	if readRange == "" {
		readRange = DefaultSheetRange
	}
	return &Sheet{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
	}
}

func (s *Sheet) origin() string {
	return fmt.Sprintf("sheets://%s/%s", s.spreadsheetID, s.readRange)
}

func (s *Sheet) Load(ctx context.Context) (*models.Table, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, unreadable(s.origin(), fmt.Errorf("failed to read sheet: %w", err))
	}
	if len(resp.Values) == 0 {
		return FromRows(s.origin(), nil, nil, true)
	}

	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		grid[i] = make([]string, len(row))
		for j, cell := range row {
			grid[i][j] = fmt.Sprint(cell)
		}
	}

	// the API trims trailing empty cells, so short rows are expected
	return FromRows(s.origin(), grid[0], grid[1:], true)
}
