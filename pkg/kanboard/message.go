package kanboard

import "encoding/json"

const (
	// Version is the JSON-RPC protocol version sent with every request.
	Version = "2.0"

	// requestID is constant: a client never pipelines calls on one
	// connection, so responses are matched by the HTTP exchange, not the id.
	requestID = 1
)

// Params holds the named parameters of a remote procedure. Positional
// parameters are not supported.
type Params map[string]any

// Request is the JSON-RPC envelope posted to the endpoint.
type Request struct {
	ID      int    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  Params `json:"params"`
}

// NewRequest builds the envelope for method. Nil params are sent as {}.
func NewRequest(method string, params Params) Request {
	if params == nil {
		params = Params{}
	}
	return Request{
		ID:      requestID,
		JSONRPC: Version,
		Method:  method,
		Params:  params,
	}
}

// Response is a decoded JSON-RPC response. When Error is set it wins over
// Result.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object of a failed JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// UnmarshalJSON accepts the standard object form and, from non-conforming
// servers, a bare string or any other JSON value, which becomes the message.
func (e *RPCError) UnmarshalJSON(data []byte) error {
	type object RPCError
	var obj object
	if err := json.Unmarshal(data, &obj); err == nil {
		*e = RPCError(obj)
		return nil
	}

	var msg string
	if err := json.Unmarshal(data, &msg); err == nil {
		*e = RPCError{Message: msg}
		return nil
	}

	*e = RPCError{Message: string(data)}
	return nil
}

// decodeResult turns a raw result into a plain Go value. A missing or null
// result decodes to nil. Numbers become float64.
func decodeResult(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
