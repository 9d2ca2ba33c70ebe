// Package mmap provides memory-mapped file I/O for segment files: shared
// read-write mappings for writers and read-only mappings for readers.
package mmap

import (
	"fmt"
	"math"
	"os"
	"sync"
)

// Map maps the first size bytes of file read-write and shared, so stores to
// the returned slice reach the file. The file must already be size bytes long.
func Map(file *os.File, size int64) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cannot map %d bytes", size)
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("mapping of %d bytes exceeds address space", size)
	}
	data, err := mapFile(int(file.Fd()), int(size), true)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	// Cell writes land anywhere in the region
	advise(data, adviseRandom)
	return data, nil
}

// Sync flushes a mapping to its file and waits for the write to complete
func Sync(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := flush(data); err != nil {
		return fmt.Errorf("failed to msync: %w", err)
	}
	return nil
}

// Unmap releases a mapping returned by Map
func Unmap(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := unmap(data); err != nil {
		return fmt.Errorf("failed to munmap: %w", err)
	}
	return nil
}

// Reader provides memory-mapped file reading with zero-copy performance
type Reader struct {
	file     *os.File
	data     []byte
	fileSize int64
	pageSize int

	// Stats
	bytesRead int64
	pagesRead int64

	mu sync.RWMutex
}

// NewReader creates a new memory-mapped file reader. An empty file yields a
// reader with no data.
func NewReader(filename string) (*Reader, error) {
	file, err := os.Open(filename) //nolint:gosec // G304: path is controlled by caller
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fileSize := stat.Size()
	if fileSize > math.MaxInt {
		file.Close()
		return nil, fmt.Errorf("file of %d bytes exceeds address space", fileSize)
	}

	r := &Reader{
		file:     file,
		fileSize: fileSize,
		pageSize: os.Getpagesize(),
	}
	if fileSize == 0 {
		return r, nil
	}

	// Memory map the file
	data, err := mapFile(int(file.Fd()), int(fileSize), false)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}

	advise(data, adviseSequential)

	r.data = data
	return r, nil
}

// Size returns the mapped file size
func (r *Reader) Size() int64 {
	return r.fileSize
}

// ReadAll returns the entire memory-mapped file data and asks the kernel to
// fault it in
func (r *Reader) ReadAll() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefetchRange(0, r.fileSize)

	r.bytesRead = r.fileSize
	r.pagesRead = (r.fileSize + int64(r.pageSize) - 1) / int64(r.pageSize)

	return r.data
}

// prefetchRange advises kernel to prefetch a range of pages
func (r *Reader) prefetchRange(start, end int64) {
	if r.data == nil {
		return
	}
	// Align to page boundaries
	startPage := (start / int64(r.pageSize)) * int64(r.pageSize)
	endPage := ((end + int64(r.pageSize) - 1) / int64(r.pageSize)) * int64(r.pageSize)

	if endPage > r.fileSize {
		endPage = r.fileSize
	}

	length := endPage - startPage
	if length <= 0 {
		return
	}

	advise(r.data[startPage:endPage], adviseWillNeed)
}

// Close unmaps the file and closes it
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error

	// Unmap the file
	if r.data != nil {
		err = unmap(r.data)
		r.data = nil
	}

	// Close the file
	if r.file != nil {
		if closeErr := r.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		r.file = nil
	}

	return err
}

// Stats returns reading statistics
func (r *Reader) Stats() (bytesRead, pagesRead int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bytesRead, r.pagesRead
}
