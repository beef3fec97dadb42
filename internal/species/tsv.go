package species

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"foldsweep/internal/services"
)

// tsvFile is a parsed tab-separated file with a header row.
type tsvFile struct {
	columns map[string]int
	rows    [][]string
}

func (f *tsvFile) value(row []string, column string) string {
	idx, ok := f.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func readTSV(path string, required []string) (*tsvFile, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "input", "open", path+" does not exist", err)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return parseTSV(file, path, required)
}

func parseTSV(r io.Reader, name string, required []string) (*tsvFile, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrConfiguration, "input", "read header", name+" is empty", nil)
		}
		return nil, fmt.Errorf("read header of %s: %w", name, err)
	}

	columns := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if _, dup := columns[col]; !dup {
			columns[col] = i
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "input", "read header",
			fmt.Sprintf("%s is missing columns %s", name, strings.Join(missing, ", ")), nil)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		rows = append(rows, row)
	}
	return &tsvFile{columns: columns, rows: rows}, nil
}
