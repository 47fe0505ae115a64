package kanboard

import (
	"context"
	"encoding/json"
	"maps"
)

// Future is the pending outcome of an asynchronous call. It resolves exactly
// once, with either a result or a *ClientError.
type Future struct {
	method string
	done   chan struct{}

	result json.RawMessage
	err    error
}

func newFuture(method string) *Future {
	return &Future{
		method: method,
		done:   make(chan struct{}),
	}
}

// Method is the remote procedure name the future was started for.
func (f *Future) Method() string {
	return f.method
}

// Done is closed once the call has resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the call resolves or ctx is done. Giving up on the wait
// returns ctx.Err() and leaves the call running; cancel the context passed to
// CallAsync to abort the request itself.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		if f.err != nil {
			return nil, f.err
		}
		return decodeResult(f.result), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AwaitInto is Await decoding the result into out.
func (f *Future) AwaitInto(ctx context.Context, out any) error {
	select {
	case <-f.done:
		if f.err != nil {
			return f.err
		}
		return unmarshalResult(f.result, out)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Future) resolve(result json.RawMessage, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

// ExecuteAsync starts Execute on its own goroutine and returns immediately.
// ctx governs the request, not the wait.
func (c *Client) ExecuteAsync(ctx context.Context, method string, params Params) *Future {
	future := newFuture(method)
	params = maps.Clone(params)

	c.metrics.asyncStarted()
	go func() {
		result, err := c.executeQueued(ctx, method, params)
		c.metrics.asyncFinished()
		future.resolve(result, err)
	}()

	return future
}

// executeQueued waits for a worker slot when the client is bounded.
func (c *Client) executeQueued(ctx context.Context, method string, params Params) (json.RawMessage, error) {
	if c.workers != nil {
		if err := c.workers.Acquire(ctx, 1); err != nil {
			return nil, wrapf(ErrNoWorker, err)
		}
		defer c.workers.Release(1)
	}
	return c.execute(ctx, method, params)
}

// CallAsync is the asynchronous form of Call. The async marker, if present,
// is stripped from name before translation.
//
//	f := client.CallAsync(ctx, "create_project_async", kanboard.Params{"name": "Ops"})
//	id, err := f.Await(ctx)
func (c *Client) CallAsync(ctx context.Context, name string, params Params) *Future {
	return c.ExecuteAsync(ctx, RemoteName(name), params)
}

// Dispatch picks the call shape from the name: a name ending in AsyncMarker
// starts an asynchronous call, any other name is executed before Dispatch
// returns and the future is already resolved.
func (c *Client) Dispatch(ctx context.Context, name string, params Params) *Future {
	if IsAsyncMethodName(name) {
		return c.CallAsync(ctx, name, params)
	}

	future := newFuture(RemoteName(name))
	future.resolve(c.execute(ctx, future.method, params))
	return future
}
