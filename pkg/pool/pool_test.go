package pool

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolReset(t *testing.T) {
	p := New(
		func() *bytes.Buffer { return new(bytes.Buffer) },
		func(b *bytes.Buffer) { b.Reset() },
	)

	b := p.Get()
	b.WriteString("row")
	p.Put(b)

	again := p.Get()
	assert.Zero(t, again.Len())
	p.Put(again)

	allocated, inUse, gets := p.Stats()
	assert.GreaterOrEqual(t, allocated, int64(1))
	assert.Zero(t, inUse)
	assert.Equal(t, int64(2), gets)
}

func TestPoolConcurrent(t *testing.T) {
	p := New(func() *int { return new(int) }, func(i *int) { *i = 0 })

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				v := p.Get()
				*v = i
				p.Put(v)
			}
		}()
	}
	wg.Wait()

	_, inUse, gets := p.Stats()
	assert.Zero(t, inUse)
	assert.Equal(t, int64(8000), gets)
}

func TestBuffers(t *testing.T) {
	b := GetBuffer()
	assert.Len(t, *b, BufferSize)
	PutBuffer(b)

	small := make([]byte, 10)
	PutBuffer(&small)
	PutBuffer(nil)
	assert.Len(t, *GetBuffer(), BufferSize)
}
