package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	l, err := New(Config{Level: "debug", Encoding: "console", Development: true})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestGetDefaults(t *testing.T) {
	global.Store(nil)
	l := Get()
	require.NotNil(t, l)
	assert.Same(t, l, Get())
}

func TestWithContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Replace(zap.New(core))
	defer Replace(zap.NewNop())

	ctx := context.WithValue(context.Background(), SegmentKey, "/tmp/seg.dat")
	ctx = context.WithValue(ctx, SchemaKey, "clicks")
	WithContext(ctx).Info("finalized")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/tmp/seg.dat", fields["segment"])
	assert.Equal(t, "clicks", fields["schema"])
}
