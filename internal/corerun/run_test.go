package corerun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Go_RunsFnAndDeliversResult(t *testing.T) {
	out := Go(context.Background(), func(ctx context.Context) (int, error) {
		return 7, nil
	})

	res := <-out
	require.NoError(t, res.Err)
	require.Equal(t, 7, res.Value)
}

func Test_Go_SkipsFnIfCtxAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := false
	out := Go(ctx, func(ctx context.Context) (int, error) {
		started = true
		return 0, nil
	})

	res := <-out
	require.ErrorIs(t, res.Err, context.Canceled)
	require.False(t, started)
}

func Test_Go_PropagatesCtxIntoFn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := Go(ctx, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	res := <-out
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func Test_Go_RecoversPanicIntoPanicError(t *testing.T) {
	out := Go(context.Background(), func(ctx context.Context) (int, error) {
		panic("boom")
	})

	res := <-out
	require.Error(t, res.Err)

	var pe *PanicError
	require.ErrorAs(t, res.Err, &pe)
	require.NotEmpty(t, pe.Stack())
}

func Test_Go_RecoversPanicWithError(t *testing.T) {
	cause := errors.New("root cause")
	out := Go(context.Background(), func(ctx context.Context) (int, error) {
		panic(cause)
	})

	res := <-out
	require.ErrorIs(t, res.Err, cause)
}
