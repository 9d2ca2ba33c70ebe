package rowcol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

var backends = []Backend{BackendMmap, BackendFile}

func newTestWriter(t *testing.T, backend Backend, rows int, widths ...int) (*Writer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.seg")
	w, err := NewWriter(path, rows, len(widths), widths,
		WithBackend(backend), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return w, path
}

// setRaw writes a width-sized big-endian value through the typed setter
// for that width
func setRaw(w *Writer, row, col, width int, v uint64) error {
	switch width {
	case 1:
		return w.SetByte(row, col, int8(v))
	case 2:
		return w.SetShort(row, col, int16(v))
	case 4:
		return w.SetInt(row, col, int32(v))
	case 8:
		return w.SetLong(row, col, int64(v))
	default:
		buf := make([]byte, width)
		for i := range buf {
			buf[i] = byte(v >> (8 * (i % 8)))
		}
		return w.SetBytes(row, col, buf)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, backend := range backends {
		for _, rows := range []int{0, 1, 100} {
			for _, widths := range [][]int{{4}, {4, 4}, {4, 8, 2}} {
				name := fmt.Sprintf("%s/rows=%d/widths=%v", backend, rows, widths)
				t.Run(name, func(t *testing.T) {
					w, path := newTestWriter(t, backend, rows, widths...)
					rng := rand.New(rand.NewSource(int64(rows*31 + len(widths))))

					expected := make([][]uint64, rows)
					for r := 0; r < rows; r++ {
						expected[r] = make([]uint64, len(widths))
						for c, width := range widths {
							v := rng.Uint64() >> (64 - 8*width)
							expected[r][c] = v
							require.NoError(t, setRaw(w, r, c, width, v))
						}
					}

					seg, err := w.SaveAndClose()
					require.NoError(t, err)
					assert.Equal(t, path, seg.Path)

					data, err := os.ReadFile(path)
					require.NoError(t, err)
					require.Len(t, data, rows*seg.Layout.RowWidth())

					// Sequential row-major, column-minor decode
					pos := 0
					for r := 0; r < rows; r++ {
						for c, width := range widths {
							var got uint64
							for _, b := range data[pos : pos+width] {
								got = got<<8 | uint64(b)
							}
							assert.Equal(t, expected[r][c], got, "row %d col %d", r, c)
							pos += width
						}
					}
				})
			}
		}
	}
}

func TestReverseOrderWritesIdentical(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			value := func(r, c int) int32 { return int32(r*1000 + c) }

			forward, forwardPath := newTestWriter(t, backend, 100, 4, 4)
			for r := 0; r < 100; r++ {
				for c := 0; c < 2; c++ {
					require.NoError(t, forward.SetInt(r, c, value(r, c)))
				}
			}
			_, err := forward.SaveAndClose()
			require.NoError(t, err)

			reverse, reversePath := newTestWriter(t, backend, 100, 4, 4)
			for r := 99; r >= 0; r-- {
				for c := 1; c >= 0; c-- {
					require.NoError(t, reverse.SetInt(r, c, value(r, c)))
				}
			}
			_, err = reverse.SaveAndClose()
			require.NoError(t, err)

			a, err := os.ReadFile(forwardPath)
			require.NoError(t, err)
			b, err := os.ReadFile(reversePath)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(a, b))
		})
	}
}

func TestWidthMismatchWritesNothing(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			w, path := newTestWriter(t, backend, 2, 4, 4)

			err := w.SetLong(0, 0, -1)
			assert.ErrorIs(t, err, errors.ErrLayout)
			assert.ErrorIs(t, w.SetDouble(1, 1, math.Pi), errors.ErrLayout)
			assert.ErrorIs(t, w.SetShort(0, 1, -1), errors.ErrLayout)
			assert.ErrorIs(t, w.SetBytes(0, 0, []byte{1, 2, 3}), errors.ErrLayout)

			_, err = w.SaveAndClose()
			require.NoError(t, err)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, make([]byte, 16), data)
		})
	}
}

func TestBoundsRejected(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			w, _ := newTestWriter(t, backend, 5, 4)
			defer w.Abort()

			assert.ErrorIs(t, w.SetInt(5, 0, 1), errors.ErrBounds)
			assert.ErrorIs(t, w.SetInt(-1, 0, 1), errors.ErrBounds)
			assert.ErrorIs(t, w.SetInt(0, 1, 1), errors.ErrBounds)
			assert.ErrorIs(t, w.SetInt(0, -1, 1), errors.ErrBounds)
			// Bounds are checked before width
			assert.ErrorIs(t, w.SetLong(5, 0, 1), errors.ErrBounds)
		})
	}
}

func TestFinalizedWriterRejectsWrites(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			w, path := newTestWriter(t, backend, 2, 4)
			require.NoError(t, w.SetInt(0, 0, 7))
			_, err := w.SaveAndClose()
			require.NoError(t, err)
			assert.Equal(t, StateFinalized, w.State())

			before, err := os.ReadFile(path)
			require.NoError(t, err)

			// State is checked before bounds and width
			assert.ErrorIs(t, w.SetInt(1, 0, 9), errors.ErrInvalidState)
			assert.ErrorIs(t, w.SetInt(10, 0, 9), errors.ErrInvalidState)
			assert.ErrorIs(t, w.SetLong(1, 0, 9), errors.ErrInvalidState)

			_, err = w.SaveAndClose()
			assert.ErrorIs(t, err, errors.ErrInvalidState)
			assert.ErrorIs(t, w.Abort(), errors.ErrInvalidState)

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestUnwrittenCellsAreZero(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			w, path := newTestWriter(t, backend, 3, 4, 8, 2)
			require.NoError(t, w.SetLong(1, 1, -1))
			_, err := w.SaveAndClose()
			require.NoError(t, err)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Len(t, data, 42)

			expected := make([]byte, 42)
			copy(expected[18:26], bytes.Repeat([]byte{0xff}, 8))
			assert.Equal(t, expected, data)
		})
	}
}

func TestLastWriteWins(t *testing.T) {
	w, path := newTestWriter(t, BackendMmap, 1, 4)
	require.NoError(t, w.SetInt(0, 0, 1))
	require.NoError(t, w.SetInt(0, 0, 2))
	require.NoError(t, w.SetFloat(0, 0, 1.5))
	_, err := w.SaveAndClose()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, math.Float32bits(1.5), binary.BigEndian.Uint32(data))
}

func TestEncodings(t *testing.T) {
	w, path := newTestWriter(t, BackendFile, 1, 1, 1, 2, 2, 4, 4, 8, 8, 3)
	require.NoError(t, w.SetByte(0, 0, -2))
	require.NoError(t, w.SetBool(0, 1, true))
	require.NoError(t, w.SetShort(0, 2, -2))
	require.NoError(t, w.SetChar(0, 3, 'A'))
	require.NoError(t, w.SetInt(0, 4, 0x01020304))
	require.NoError(t, w.SetFloat(0, 5, float32(math.Inf(-1))))
	require.NoError(t, w.SetLong(0, 6, math.MinInt64))
	require.NoError(t, w.SetDouble(0, 7, math.Copysign(0, -1)))
	require.NoError(t, w.SetBytes(0, 8, []byte("abc")))
	_, err := w.SaveAndClose()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	expected := []byte{
		0xfe,
		0x01,
		0xff, 0xfe,
		0x00, 0x41,
		0x01, 0x02, 0x03, 0x04,
		0xff, 0x80, 0x00, 0x00,
		0x80, 0, 0, 0, 0, 0, 0, 0,
		0x80, 0, 0, 0, 0, 0, 0, 0,
		'a', 'b', 'c',
	}
	assert.Equal(t, expected, data)
}

func TestConcurrentDisjointWrites(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			const rows, workers = 1000, 8
			w, _ := newTestWriter(t, backend, rows, 8, 4)

			var wg sync.WaitGroup
			for g := 0; g < workers; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for r := g; r < rows; r += workers {
						assert.NoError(t, w.SetLong(r, 0, int64(r)*3))
						assert.NoError(t, w.SetInt(r, 1, int32(r)))
					}
				}(g)
			}
			wg.Wait()

			seg, err := w.SaveAndClose()
			require.NoError(t, err)

			reader, err := seg.Open()
			require.NoError(t, err)
			defer reader.Close()
			for r := 0; r < rows; r++ {
				v, err := reader.Long(r, 0)
				require.NoError(t, err)
				assert.Equal(t, int64(r)*3, v)
			}
		})
	}
}

func TestAbortRemovesFile(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			w, path := newTestWriter(t, backend, 10, 4)
			require.NoError(t, w.SetInt(3, 0, 3))

			require.NoError(t, w.Abort())
			_, err := os.Stat(path)
			assert.True(t, os.IsNotExist(err))
			assert.ErrorIs(t, w.SetInt(0, 0, 1), errors.ErrInvalidState)
			_, err = w.SaveAndClose()
			assert.ErrorIs(t, err, errors.ErrInvalidState)
		})
	}
}

func TestCreateTruncatesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.seg")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xaa}, 100), 0o644))

	w, err := NewWriter(path, 2, 1, []int{4})
	require.NoError(t, err)
	_, err = w.SaveAndClose()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 8), data)
}

func TestCreateRejects(t *testing.T) {
	dir := t.TempDir()

	_, err := NewWriter(filepath.Join(dir, "a.seg"), 1, 2, []int{4})
	assert.ErrorIs(t, err, errors.ErrLayout)
	_, err = os.Stat(filepath.Join(dir, "a.seg"))
	assert.True(t, os.IsNotExist(err))

	_, err = Create(filepath.Join(dir, "b.seg"), Layout{})
	assert.ErrorIs(t, err, errors.ErrLayout)

	l, _ := NewLayout(1, 1, []int{4})
	_, err = Create(filepath.Join(dir, "c.seg"), l, WithBackend("tape"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Create(filepath.Join(dir, "missing", "d.seg"), l)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("file")
	require.NoError(t, err)
	assert.Equal(t, BackendFile, b)

	b, err = ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendMmap, b)

	_, err = ParseBackend("tape")
	assert.Error(t, err)
}
