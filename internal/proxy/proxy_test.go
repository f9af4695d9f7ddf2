package proxy

import (
	"context"
	"errors"
	"testing"

	"github.com/cortexstack/connector-gateway/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoResult struct {
	Answer string `json:"answer" validate:"required"`
	Score  int    `json:"score"`
}

func syncEcho(_ context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{"answer": payload["question"], "score": 1}, nil
}

func asyncEcho(ctx context.Context, payload map[string]interface{}) <-chan dispatch.Result {
	ch := make(chan dispatch.Result, 1)
	go func() {
		out, err := syncEcho(ctx, payload)
		ch <- dispatch.Result{Payload: out, Err: err}
		close(ch)
	}()
	return ch
}

func TestInvokeSyncDispatcher(t *testing.T) {
	p := NewSync(syncEcho)

	var out echoResult
	err := p.Invoke(context.Background(), map[string]interface{}{"question": "ping"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ping", out.Answer)
	assert.Equal(t, 1, out.Score)
}

func TestInvokeRefusesAsyncDispatcher(t *testing.T) {
	p := NewAsync(asyncEcho)

	var out echoResult
	err := p.Invoke(context.Background(), map[string]interface{}{"question": "ping"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAsyncDispatcher)
	assert.Contains(t, err.Error(), "InvokeAsync")
}

func TestInvokeAsyncWorksForBothVariants(t *testing.T) {
	payload := map[string]interface{}{"question": "ping"}

	var fromSync echoResult
	require.NoError(t, NewSync(syncEcho).InvokeAsync(context.Background(), payload, &fromSync))
	assert.Equal(t, "ping", fromSync.Answer)

	var fromAsync echoResult
	require.NoError(t, NewAsync(asyncEcho).InvokeAsync(context.Background(), payload, &fromAsync))
	assert.Equal(t, "ping", fromAsync.Answer)
}

func TestInvokeValidationFailure(t *testing.T) {
	// Dispatcher omits the required "answer" field.
	bad := func(_ context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"score": 2}, nil
	}

	var out echoResult
	err := NewSync(bad).Invoke(context.Background(), map[string]interface{}{}, &out)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), "response failed validation")
	// The underlying structural error is included for diagnostics.
	assert.Contains(t, err.Error(), "Answer")
}

func TestInvokeDispatcherErrorPassesThrough(t *testing.T) {
	boom := errors.New("backend exploded")
	failing := func(_ context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
		return nil, boom
	}

	var out echoResult
	err := NewSync(failing).Invoke(context.Background(), map[string]interface{}{}, &out)
	assert.ErrorIs(t, err, boom)
}

func TestInvokeAsyncHonorsContextCancel(t *testing.T) {
	blocked := func(ctx context.Context, _ map[string]interface{}) <-chan dispatch.Result {
		return make(chan dispatch.Result) // never delivers
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out echoResult
	err := NewAsync(blocked).InvokeAsync(ctx, map[string]interface{}{}, &out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvokeMapResponseModelSkipsStructValidation(t *testing.T) {
	p := NewSync(syncEcho)

	var out map[string]interface{}
	err := p.Invoke(context.Background(), map[string]interface{}{"question": "ping"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ping", out["answer"])
}
