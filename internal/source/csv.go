package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

// CSVFile loads a delimited text file whose first row is the header.
type CSVFile struct {
	Path  string
	Comma rune
}

func NewCSVFile(path string) *CSVFile {
	return &CSVFile{Path: path, Comma: ','}
}

func (f *CSVFile) Load(ctx context.Context) (*models.Table, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, unreadable(f.Path, err)
	}
	defer file.Close()

	return ReadCSV(f.Path, file, f.Comma)
}

// ReadCSV decodes r as CSV. Every row must have as many fields as the header.
func ReadCSV(origin string, r io.Reader, comma rune) (*models.Table, error) {
	csvReader := csv.NewReader(r)
	if comma != 0 {
		csvReader.Comma = comma
	}
	csvReader.FieldsPerRecord = 0

	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.Error{Kind: models.ErrSourceEmpty, Op: "load " + origin, Err: errors.New("no header row")}
	}
	if err != nil {
		return nil, readError(origin, err)
	}

	var rows [][]string
	for {
		row, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(origin, err)
		}
		rows = append(rows, row)
	}

	return FromRows(origin, header, rows, false)
}

func readError(origin string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &models.Error{Kind: models.ErrSourceMalformed, Op: "load " + origin, Err: fmt.Errorf("failed to read CSV row: %w", err)}
	}
	return unreadable(origin, err)
}
