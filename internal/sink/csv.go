package sink

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteCSV writes the result grid to w and returns the number of bytes written.
func WriteCSV(w io.Writer, results []models.ResultRecord, comma rune) (int64, error) {
	cw := &countingWriter{w: w}
	csvWriter := csv.NewWriter(cw)
	if comma != 0 {
		csvWriter.Comma = comma
	}
	if err := csvWriter.WriteAll(Grid(results)); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

type CSVFile struct {
	Path  string
	Comma rune
	// Exclusive refuses to replace an existing file.
	Exclusive bool
}

func NewCSVFile(path string) *CSVFile {
	return &CSVFile{Path: path, Comma: ','}
}

func (f *CSVFile) Export(ctx context.Context, results []models.ResultRecord) (int64, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if f.Exclusive {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(f.Path, flags, 0o644)
	if err != nil {
		return 0, unwritable(f.Path, err)
	}

	n, err := WriteCSV(file, results, f.Comma)
	if err != nil {
		file.Close()
		return n, unwritable(f.Path, err)
	}
	if err := file.Close(); err != nil {
		return n, unwritable(f.Path, err)
	}
	return n, nil
}
