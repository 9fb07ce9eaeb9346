// Package source loads tabular rows from local files, GCS objects and Google
// Sheets into a models.Table.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

type Loader interface {
	Load(ctx context.Context) (*models.Table, error)
}

// FromRows normalizes a header and its data rows into a table. With padShort,
// rows shorter than the header are right-padded with absent cells; otherwise
// they are malformed. Longer rows are always malformed.
func FromRows(origin string, header []string, rows [][]string, padShort bool) (*models.Table, error) {
	if len(header) == 0 {
		return nil, &models.Error{Kind: models.ErrSourceEmpty, Op: "load " + origin, Err: errors.New("no header row")}
	}

	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == "" {
			return nil, &models.Error{Kind: models.ErrSourceMalformed, Op: "load " + origin, Err: fmt.Errorf("blank header in column %d", i+1)}
		}
		if _, dup := index[name]; dup {
			return nil, &models.Error{Kind: models.ErrSourceMalformed, Op: "load " + origin, Err: fmt.Errorf("duplicate header %q", name)}
		}
		columns[i] = name
		index[name] = i
	}

	if len(rows) == 0 {
		return nil, &models.Error{Kind: models.ErrSourceEmpty, Op: "load " + origin, Err: errors.New("no data rows")}
	}

	table := &models.Table{
		Origin:  origin,
		Columns: columns,
		Rows:    make([]models.Record, 0, len(rows)),
	}
	for n, row := range rows {
		if len(row) > len(columns) || (len(row) < len(columns) && !padShort) {
			return nil, &models.Error{
				Kind: models.ErrSourceMalformed,
				Op:   "load " + origin,
				Err:  fmt.Errorf("row %d has %d fields, header has %d", n+2, len(row), len(columns)),
			}
		}
		values := make([]*string, len(columns))
		for i := range row {
			v := row[i]
			values[i] = &v
		}
		table.Rows = append(table.Rows, models.NewRecord(columns, index, values))
	}
	return table, nil
}

func unreadable(origin string, err error) error {
	return &models.Error{Kind: models.ErrSourceUnreadable, Op: "load " + origin, Err: err}
}
