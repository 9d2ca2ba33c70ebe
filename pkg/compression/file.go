package compression

import (
	"io"
	"os"
	"time"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
	"github.com/ajitpratap0/fixedseg/pkg/pool"
)

// Stats describes one packed file
type Stats struct {
	Algorithm      Algorithm
	OriginalSize   int64
	CompressedSize int64
	Duration       time.Duration
}

// Ratio returns compressed size over original size, 0 for empty input
func (s Stats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 0
	}
	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// CompressFile streams src through algorithm a into dst, replacing dst
func CompressFile(src, dst string, a Algorithm, level Level) (Stats, error) {
	start := time.Now()
	stats := Stats{Algorithm: a}

	in, err := os.Open(src) //nolint:gosec // G304: path is controlled by caller
	if err != nil {
		return stats, errors.Wrap(err, errors.ErrorTypeFile, "failed to open segment")
	}
	defer in.Close()

	out, err := os.Create(dst) //nolint:gosec // G304: path is controlled by caller
	if err != nil {
		return stats, errors.Wrap(err, errors.ErrorTypeFile, "failed to create archive")
	}

	counter := &countingWriter{w: out}
	zw, err := NewWriter(counter, a, level)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return stats, err
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	n, err := io.CopyBuffer(zw, in, *buf)
	if err == nil {
		err = zw.Close()
	}
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return stats, errors.Wrap(err, errors.ErrorTypeFile, "failed to compress segment")
	}

	stats.OriginalSize = n
	stats.CompressedSize = counter.n
	stats.Duration = time.Since(start)
	return stats, nil
}

// DecompressFile restores src into dst, replacing dst. The algorithm is taken
// from the extension of src.
func DecompressFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: path is controlled by caller
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open archive")
	}
	defer in.Close()

	zr, err := NewReader(in, AlgorithmForPath(src))
	if err != nil {
		return err
	}
	defer zr.Close()

	out, err := os.Create(dst) //nolint:gosec // G304: path is controlled by caller
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create segment")
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	_, err = io.CopyBuffer(out, zr, *buf) //nolint:gosec // G110: archives are produced by CompressFile
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return errors.Wrap(err, errors.ErrorTypeData, "failed to decompress archive")
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
