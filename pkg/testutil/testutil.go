// Package testutil provides testing utilities for segment builds
package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SegmentPath returns a fresh segment path inside a per-test temp directory
func SegmentPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// CreateTempFile writes content to name inside a per-test temp directory
func CreateTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// AssertNoFile fails the test if path exists
func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "expected %s to be absent, stat returned %v", path, err)
}

// SliceSource serves rows from memory. It satisfies the row source
// interfaces of the formats and pipeline packages.
type SliceSource struct {
	Rows []map[string]any
	// Err is returned once the rows are exhausted, io.EOF when nil
	Err    error
	next   int
	Closed bool
}

// NewSliceSource returns a source over rows
func NewSliceSource(rows ...map[string]any) *SliceSource {
	return &SliceSource{Rows: rows}
}

// Next returns the next row
func (s *SliceSource) Next() (map[string]any, error) {
	if s.next >= len(s.Rows) {
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, io.EOF
	}
	row := s.Rows[s.next]
	s.next++
	return row, nil
}

// Close marks the source closed
func (s *SliceSource) Close() error {
	s.Closed = true
	return nil
}
