package pipeline

import (
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
	"github.com/ajitpratap0/fixedseg/pkg/rowcol"
	"github.com/ajitpratap0/fixedseg/pkg/schema"
)

// MetadataSuffix is appended to a segment path to name its sidecar
const MetadataSuffix = ".meta.json"

// ByteOrder names the cell encoding recorded in every sidecar
const ByteOrder = "big-endian"

// Metadata is the sidecar written next to a segment. The segment itself has
// no header, so the sidecar is the only record of its layout.
type Metadata struct {
	Schema    *schema.Schema `json:"schema"`
	Columns   int            `json:"columns"`
	Layout    rowcol.Layout  `json:"layout"`
	ByteOrder string         `json:"byteOrder"`
	CreatedAt time.Time      `json:"createdAt"`
}

// MetadataPath returns the sidecar path of a segment
func MetadataPath(segment string) string {
	return segment + MetadataSuffix
}

// WriteMetadata writes the sidecar of seg and returns its path
func WriteMetadata(seg *rowcol.File, s *schema.Schema) (string, error) {
	meta := Metadata{
		Schema:    s,
		Columns:   seg.Layout.Columns(),
		Layout:    seg.Layout,
		ByteOrder: ByteOrder,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode segment metadata")
	}
	path := MetadataPath(seg.Path)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: segments are shared read-only artifacts
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to write segment metadata").
			WithDetail("path", path)
	}
	return path, nil
}

// ReadMetadata reads the sidecar of the segment at path
func ReadMetadata(path string) (*Metadata, error) {
	metaPath := MetadataPath(path)
	data, err := os.ReadFile(metaPath) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read segment metadata").
			WithDetail("path", metaPath)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		if errors.TypeOf(err) == errors.ErrorTypeLayout {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrorTypeData, "malformed segment metadata").
			WithDetail("path", metaPath)
	}
	if meta.ByteOrder != ByteOrder {
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported byte order %q", meta.ByteOrder).
			WithDetail("path", metaPath)
	}
	if meta.Schema == nil {
		return nil, errors.New(errors.ErrorTypeData, "segment metadata has no schema").
			WithDetail("path", metaPath)
	}
	if meta.Columns != meta.Layout.Columns() {
		return nil, errors.Newf(errors.ErrorTypeLayout, "metadata lists %d columns, layout has %d",
			meta.Columns, meta.Layout.Columns())
	}
	widths, err := meta.Schema.ColumnWidths()
	if err != nil {
		return nil, err
	}
	if len(widths) != meta.Layout.Columns() {
		return nil, errors.Newf(errors.ErrorTypeLayout, "schema has %d columns, layout has %d",
			len(widths), meta.Layout.Columns())
	}
	for c, w := range widths {
		if meta.Layout.Width(c) != w {
			return nil, errors.Newf(errors.ErrorTypeLayout, "column %s is %d bytes wide, layout says %d",
				meta.Schema.Fields[c].Name, w, meta.Layout.Width(c))
		}
	}
	return &meta, nil
}

// OpenSegment opens a built segment through its sidecar
func OpenSegment(path string, opts ...rowcol.Option) (*rowcol.Reader, *Metadata, error) {
	meta, err := ReadMetadata(path)
	if err != nil {
		return nil, nil, err
	}
	r, err := rowcol.Open(path, meta.Layout, opts...)
	if err != nil {
		return nil, nil, err
	}
	return r, meta, nil
}
