package kanboard

import "context"

// Procedure binds an invocation name to a client, the way a generated method
// would: client.Procedure("get_all_projects").Call(ctx, nil).
type Procedure struct {
	client *Client
	name   string
	method string
}

// Procedure resolves name once. Nothing is sent until the procedure is called.
func (c *Client) Procedure(name string) Procedure {
	return Procedure{
		client: c,
		name:   name,
		method: RemoteName(name),
	}
}

// Name is the invocation name as given.
func (p Procedure) Name() string {
	return p.name
}

// Method is the remote procedure name.
func (p Procedure) Method() string {
	return p.method
}

// IsAsync reports whether the name carries the async marker.
func (p Procedure) IsAsync() bool {
	return IsAsyncMethodName(p.name)
}

// Call executes the procedure synchronously, whatever its name.
func (p Procedure) Call(ctx context.Context, params Params) (any, error) {
	return p.client.Execute(ctx, p.method, params)
}

// CallInto is Call decoding the result into out.
func (p Procedure) CallInto(ctx context.Context, params Params, out any) error {
	return p.client.ExecuteInto(ctx, p.method, params, out)
}

// Go starts the procedure asynchronously, whatever its name.
func (p Procedure) Go(ctx context.Context, params Params) *Future {
	return p.client.ExecuteAsync(ctx, p.method, params)
}

// Invoke follows the name: asynchronous with the marker, synchronous without.
func (p Procedure) Invoke(ctx context.Context, params Params) *Future {
	return p.client.Dispatch(ctx, p.name, params)
}
