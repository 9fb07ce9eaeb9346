package sink

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/api/sheets/v4"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

type Sheet struct {
	srv           *sheets.Service
	spreadsheetID string
	writeRange    string
}

func NewSheet(srv *sheets.Service, spreadsheetID, writeRange string) *Sheet {
	if writeRange == "" {
		writeRange = "A1"
	}
	return &Sheet{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		writeRange:    writeRange,
	}
}

var cellRef = regexp.MustCompile(`^[A-Za-z]{1,3}[0-9]*$`)

// clearRange extends the start cell of the write range to the last column
// and row, so an earlier and longer export leaves nothing behind.
func clearRange(writeRange string) string {
	sheet, cells, ok := strings.Cut(writeRange, "!")
	if !ok {
		sheet, cells = "", writeRange
	}
	start, _, _ := strings.Cut(cells, ":")
	if !cellRef.MatchString(start) {
		// a bare sheet name covers the whole sheet
		return writeRange
	}
	rng := start + ":ZZ"
	if sheet != "" {
		rng = sheet + "!" + rng
	}
	return rng
}

// Update clears the target area and writes the result grid starting at the
// configured range. Values are written as entered, without formula parsing.
func (s *Sheet) Update(ctx context.Context, results []models.ResultRecord) (int64, error) {
	dest := fmt.Sprintf("sheets://%s/%s", s.spreadsheetID, s.writeRange)

	grid := Grid(results)
	values := make([][]interface{}, len(grid))
	for i, row := range grid {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	if _, err := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange(s.writeRange), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return 0, wrapf(dest, "failed to clear sheet: %w", err)
	}

	resp, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, s.writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return 0, wrapf(dest, "failed to update sheet: %w", err)
	}
	return resp.UpdatedCells, nil
}

func (s *Sheet) Export(ctx context.Context, results []models.ResultRecord) (int64, error) {
	return s.Update(ctx, results)
}
