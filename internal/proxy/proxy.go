// Package proxy wraps raw connector dispatchers with strict response
// shape validation.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/cortexstack/connector-gateway/internal/dispatch"
	"github.com/go-playground/validator/v10"
)

// AsyncFunc dispatches a payload and delivers the result on a channel.
type AsyncFunc func(ctx context.Context, payload map[string]interface{}) <-chan dispatch.Result

// ErrAsyncDispatcher is returned by Invoke on a proxy that was built
// with an async dispatcher. Sync callers must use InvokeAsync.
var ErrAsyncDispatcher = errors.New("proxy is backed by an async dispatcher, use InvokeAsync")

// ValidationError reports a connector response that failed shape
// validation. Callers only need to know validation failed and why, not
// which validation engine produced the failure.
type ValidationError struct {
	cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("response failed validation: %v", e.cause)
}

func (e *ValidationError) Unwrap() error { return e.cause }

// JSONProxy enforces that a dispatcher's untyped response conforms to a
// declared response shape. The sync/async variant is fixed at
// construction rather than detected per call.
type JSONProxy struct {
	syncFn  dispatch.Func
	asyncFn AsyncFunc
	checker *validator.Validate
}

// NewSync builds a proxy over a synchronous dispatcher.
func NewSync(fn dispatch.Func) *JSONProxy {
	return &JSONProxy{syncFn: fn, checker: validator.New()}
}

// NewAsync builds a proxy over an asynchronous dispatcher.
func NewAsync(fn AsyncFunc) *JSONProxy {
	return &JSONProxy{asyncFn: fn, checker: validator.New()}
}

// Invoke dispatches payload and decodes the validated response into
// out, which must be a pointer to the declared response model. A proxy
// built async refuses Invoke rather than silently blocking.
func (p *JSONProxy) Invoke(ctx context.Context, payload map[string]interface{}, out interface{}) error {
	if p.syncFn == nil {
		return ErrAsyncDispatcher
	}
	raw, err := p.syncFn(ctx, payload)
	if err != nil {
		return err
	}
	return p.decode(raw, out)
}

// InvokeAsync dispatches payload, awaiting the dispatcher if it is
// asynchronous, then validates the response into out. It works for
// both proxy variants.
func (p *JSONProxy) InvokeAsync(ctx context.Context, payload map[string]interface{}, out interface{}) error {
	var raw map[string]interface{}
	var err error

	if p.asyncFn != nil {
		select {
		case res := <-p.asyncFn(ctx, payload):
			raw, err = res.Payload, res.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		raw, err = p.syncFn(ctx, payload)
	}
	if err != nil {
		return err
	}
	return p.decode(raw, out)
}

// decode round-trips the raw map through JSON into out and runs the
// declared validation tags on the result.
func (p *JSONProxy) decode(raw map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return &ValidationError{cause: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ValidationError{cause: err}
	}

	// Only structs carry validation tags; a map response model is
	// accepted as-is.
	v := reflect.ValueOf(out)
	if v.Kind() == reflect.Ptr && v.Elem().Kind() == reflect.Struct {
		if err := p.checker.Struct(out); err != nil {
			return &ValidationError{cause: err}
		}
	}
	return nil
}
