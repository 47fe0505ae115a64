package kanboard

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// Construction errors
	ErrInvalidConfig = errors.New("invalid client configuration")
	ErrLoadingCA     = errors.New("error loading CA certificate")

	// Call errors, wrapped inside a ClientError
	ErrEncodingRequest = errors.New("error encoding request")
	ErrSendingRequest  = errors.New("error sending request")
	ErrReadingResponse = errors.New("error reading response")
	ErrHTTPStatus      = errors.New("unexpected HTTP status")
	ErrDecodingResult  = errors.New("error decoding result")
	ErrNoWorker        = errors.New("no worker available")
)

// ClientError is the error returned by every call on a Client.
//
// For a JSON-RPC error response, Message and Code come from the error object
// and Remote reports true. For transport failures Code is 0 and the
// underlying error is available through errors.Unwrap / errors.Is.
//
//	_, err := client.Call(ctx, "get_project_by_id", kanboard.Params{"project_id": 42})
//	var cerr *kanboard.ClientError
//	if errors.As(err, &cerr) && cerr.Remote() {
//		fmt.Println("server refused:", cerr.Code, cerr.Message)
//	}
type ClientError struct {
	Message string
	Code    int
	Data    json.RawMessage

	remote bool
	err    error
}

func (e *ClientError) Error() string {
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.err
}

// Remote reports whether the error was sent by the server as a JSON-RPC
// error object.
func (e *ClientError) Remote() bool {
	return e.remote
}

func newClientError(err error) *ClientError {
	return &ClientError{Message: err.Error(), err: err}
}

func newRemoteError(rpcErr *RPCError) *ClientError {
	return &ClientError{
		Message: rpcErr.Message,
		Code:    rpcErr.Code,
		Data:    rpcErr.Data,
		remote:  true,
	}
}

func wrapf(sentinel error, err error) *ClientError {
	return newClientError(fmt.Errorf("%w: %w", sentinel, err))
}
