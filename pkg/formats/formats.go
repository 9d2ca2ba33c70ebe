// Package formats reads input rows for segment builds from JSON lines, Avro
// object container files and Arrow IPC files or streams.
//
// Every source yields rows as map[string]any keyed by field name and
// returns io.EOF after the last row. Values keep the most precise Go type
// the format offers (json.Number for JSON numbers, int32/int64/float32 and
// so on for Avro and Arrow). A nil value is a null.
package formats

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// Format names an input format
type Format string

const (
	// JSONLines is one JSON object per line
	JSONLines Format = "jsonl"
	// Avro is an Avro object container file
	Avro Format = "avro"
	// Arrow is an Arrow IPC file
	Arrow Format = "arrow"
	// ArrowStream is an Arrow IPC stream
	ArrowStream Format = "arrows"
)

// Source yields input rows
type Source interface {
	// Next returns the next row, or io.EOF when there are no more rows
	Next() (map[string]any, error)
	// Close releases the source and the file under it
	Close() error
}

// ParseFormat parses a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case JSONLines, Avro, Arrow, ArrowStream:
		return f, nil
	case "json", "ndjson":
		return JSONLines, nil
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "unknown input format %q", name)
}

// FormatForPath guesses the format from a file extension
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson", ".json":
		return JSONLines, nil
	case ".avro":
		return Avro, nil
	case ".arrow", ".feather":
		return Arrow, nil
	case ".arrows":
		return ArrowStream, nil
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "cannot infer input format of %s", path)
}

// Open opens path as a source of the given format. Closing the source
// closes the file.
func Open(format Format, path string) (Source, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is controlled by caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").
			WithDetail("path", path)
	}

	var src Source
	switch format {
	case JSONLines:
		src = NewJSONLinesSource(f)
	case Avro:
		src, err = NewAvroSource(f)
	case Arrow:
		src, err = NewArrowFileSource(f)
	case ArrowStream:
		src, err = NewArrowSource(f)
	default:
		err = errors.Newf(errors.ErrorTypeConfig, "unknown input format %q", format)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return &closingSource{Source: src, file: f}, nil
}

type closingSource struct {
	Source
	file io.Closer
}

func (c *closingSource) Close() error {
	err := c.Source.Close()
	if closeErr := c.file.Close(); err == nil {
		err = closeErr
	}
	return err
}

// ReadAll drains src into memory
func ReadAll(src Source) ([]map[string]any, error) {
	var rows []map[string]any
	for {
		row, err := src.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}
