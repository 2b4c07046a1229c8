package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_Ready(t *testing.T) {
	f := NewFuture[string]()
	assert.Equal(t, Uninitialized, f.Status())

	_, err := f.Get()
	assert.ErrorIs(t, err, ErrNotInitialized)

	f.Start(context.Background(), func(context.Context) (string, error) {
		return "loaded", nil
	})

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
	assert.Equal(t, Ready, f.Status())
	assert.Equal(t, "ready", f.Status().String())
}

func TestFuture_Failed(t *testing.T) {
	f := NewFuture[int]()
	cause := errors.New("index missing")

	f.Start(context.Background(), func(context.Context) (int, error) {
		return 0, cause
	})
	<-f.Done()

	_, err := f.Get()
	assert.ErrorIs(t, err, ErrInitFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Failed, f.Status())
}

func TestFuture_AwaitTimesOut(t *testing.T) {
	f := NewFuture[int]()
	release := make(chan struct{})
	defer close(release)

	f.Start(context.Background(), func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestFuture_StartOnce(t *testing.T) {
	f := NewFuture[int]()
	f.Start(context.Background(), func(context.Context) (int, error) { return 1, nil })
	f.Start(context.Background(), func(context.Context) (int, error) { return 2, nil })

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
