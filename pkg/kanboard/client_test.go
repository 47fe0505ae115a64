package kanboard_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanboard/kanboard-go/pkg/kanboard"
)

// rpcServer is a fake endpoint replying with a fixed body and recording what
// it received.
type rpcServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []kanboard.Request
	headers  []http.Header
	bodies   []string
}

func newRPCServer(t *testing.T, status int, body string) *rpcServer {
	t.Helper()

	srv := &rpcServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *rpcServer) record(t *testing.T, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	assert.NoError(t, err)

	var req kanboard.Request
	assert.NoError(t, json.Unmarshal(data, &req))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	s.headers = append(s.headers, r.Header.Clone())
	s.bodies = append(s.bodies, string(data))
}

func (s *rpcServer) lastRequest(t *testing.T) (kanboard.Request, http.Header, string) {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests, "no request received")
	last := len(s.requests) - 1
	return s.requests[last], s.headers[last], s.bodies[last]
}

func (s *rpcServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newTestClient(t *testing.T, url string, opts ...kanboard.Option) *kanboard.Client {
	t.Helper()

	client, err := kanboard.NewClient(kanboard.Config{
		URL:      url,
		Username: "username",
		Password: "password",
	}, opts...)
	require.NoError(t, err)
	return client
}

// doerFunc serves requests without a network.
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

func staticDoer(status int, body string) kanboard.Doer {
	return doerFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	})
}

func requireClientError(t *testing.T, err error) *kanboard.ClientError {
	t.Helper()

	var cerr *kanboard.ClientError
	require.ErrorAs(t, err, &cerr)
	return cerr
}

func TestClient_Call(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":true}`)
	client := newTestClient(t, srv.URL)

	result, err := client.Call(context.Background(), "my_method", kanboard.Params{"some_arg": 123})
	require.NoError(t, err)
	assert.Equal(t, true, result)

	req, header, _ := srv.lastRequest(t)
	assert.Equal(t, "myMethod", req.Method)
	assert.Equal(t, 1, req.ID)
	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, kanboard.Params{"some_arg": float64(123)}, req.Params)
	assert.Equal(t, "Basic dXNlcm5hbWU6cGFzc3dvcmQ=", header.Get("Authorization"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
}

func TestClient_CustomAuthHeader(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":true}`)
	client, err := kanboard.NewClient(kanboard.Config{
		URL:        srv.URL,
		Username:   "username",
		Password:   "password",
		AuthHeader: "X-Auth-Header",
	})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), "my_method", nil)
	require.NoError(t, err)

	_, header, _ := srv.lastRequest(t)
	assert.Equal(t, "dXNlcm5hbWU6cGFzc3dvcmQ=", header.Get("X-Auth-Header"))
	assert.Empty(t, header.Get("Authorization"))
}

func TestClient_HTTPBasicAuth(t *testing.T) {
	t.Parallel()

	t.Run("custom auth header", func(t *testing.T) {
		t.Parallel()

		srv := newRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":true}`)
		client, err := kanboard.NewClient(kanboard.Config{
			URL:          srv.URL,
			Username:     "username",
			Password:     "password",
			AuthHeader:   "X-Auth-Header",
			HTTPUsername: "httpuser",
			HTTPPassword: "httppass",
		})
		require.NoError(t, err)

		_, err = client.Call(context.Background(), "my_method", nil)
		require.NoError(t, err)

		_, header, _ := srv.lastRequest(t)
		assert.Equal(t, "dXNlcm5hbWU6cGFzc3dvcmQ=", header.Get("X-Auth-Header"))
		assert.Equal(t, "Basic aHR0cHVzZXI6aHR0cHBhc3M=", header.Get("Authorization"))
	})

	t.Run("default auth header", func(t *testing.T) {
		t.Parallel()

		srv := newRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":true}`)
		client, err := kanboard.NewClient(kanboard.Config{
			URL:          srv.URL,
			Username:     "username",
			Password:     "password",
			HTTPUsername: "httpuser",
			HTTPPassword: "httppass",
		})
		require.NoError(t, err)

		_, err = client.Call(context.Background(), "my_method", nil)
		require.NoError(t, err)

		_, header, _ := srv.lastRequest(t)
		assert.Equal(t, "Basic dXNlcm5hbWU6cGFzc3dvcmQ=", header.Get("Authorization"))
	})
}

func TestClient_NilParams(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"1.2.40"}`)
	client := newTestClient(t, srv.URL)

	result, err := client.Execute(context.Background(), "getVersion", nil)
	require.NoError(t, err)
	assert.Equal(t, "1.2.40", result)

	_, _, body := srv.lastRequest(t)
	assert.JSONEq(t, `{"id":1,"jsonrpc":"2.0","method":"getVersion","params":{}}`, body)
}

func TestClient_UserAgent(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":true}`)
	client, err := kanboard.NewClient(kanboard.Config{
		URL:       srv.URL,
		Username:  "username",
		Password:  "password",
		UserAgent: "kanboard-go-test",
	})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), "get_version", nil)
	require.NoError(t, err)

	_, header, _ := srv.lastRequest(t)
	assert.Equal(t, "kanboard-go-test", header.Get("User-Agent"))
}

func TestClient_Responses(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		body string
		want any
	}{
		{name: "object result", body: `{"jsonrpc":"2.0","id":1,"result":{"id":"3","name":"Ops"}}`, want: map[string]any{"id": "3", "name": "Ops"}},
		{name: "number result", body: `{"jsonrpc":"2.0","id":1,"result":42}`, want: float64(42)},
		{name: "false result", body: `{"jsonrpc":"2.0","id":1,"result":false}`, want: false},
		{name: "null result", body: `{"jsonrpc":"2.0","id":1,"result":null}`, want: nil},
		{name: "missing result", body: `{"jsonrpc":"2.0","id":1}`, want: nil},
		{name: "not json", body: `<html>maintenance</html>`, want: nil},
		{name: "empty body", body: ``, want: nil},
		{name: "null error", body: `{"jsonrpc":"2.0","id":1,"error":null,"result":5}`, want: float64(5)},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, "http://kanboard.test/jsonrpc.php",
				kanboard.WithHTTPClient(staticDoer(http.StatusOK, tc.body)))

			result, err := client.Call(context.Background(), "some_method", nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result)
		})
	}
}

func TestClient_RemoteError(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, http.StatusOK,
		`{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"Internal error"}}`)
	client := newTestClient(t, srv.URL)

	result, err := client.Call(context.Background(), "my_method", nil)
	assert.Nil(t, result)

	cerr := requireClientError(t, err)
	assert.Equal(t, "Internal error", cerr.Message)
	assert.Equal(t, "Internal error", err.Error())
	assert.Equal(t, -32603, cerr.Code)
	assert.True(t, cerr.Remote())
}

func TestClient_ErrorWinsOverResult(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://kanboard.test/jsonrpc.php", kanboard.WithHTTPClient(staticDoer(http.StatusOK,
		`{"jsonrpc":"2.0","id":1,"result":true,"error":{"code":403,"message":"Forbidden"}}`)))

	result, err := client.Call(context.Background(), "remove_project", kanboard.Params{"project_id": 1})
	assert.Nil(t, result)

	cerr := requireClientError(t, err)
	assert.Equal(t, "Forbidden", cerr.Message)
	assert.Equal(t, 403, cerr.Code)
}

func TestClient_HTTPStatus(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, http.StatusUnauthorized, ``)
	client := newTestClient(t, srv.URL)

	_, err := client.Call(context.Background(), "get_version", nil)

	cerr := requireClientError(t, err)
	assert.ErrorIs(t, err, kanboard.ErrHTTPStatus)
	assert.False(t, cerr.Remote())
	assert.Zero(t, cerr.Code)
	assert.Contains(t, cerr.Message, "401")
}

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := newTestClient(t, url)
	_, err := client.Call(context.Background(), "get_version", nil)

	cerr := requireClientError(t, err)
	assert.ErrorIs(t, err, kanboard.ErrSendingRequest)
	assert.False(t, cerr.Remote())
	assert.Zero(t, cerr.Code)
	assert.NotEmpty(t, cerr.Message)
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	client := newTestClient(t, "http://kanboard.test/jsonrpc.php",
		kanboard.WithHTTPClient(doerFunc(func(*http.Request) (*http.Response, error) {
			return nil, boom
		})))

	_, err := client.Call(context.Background(), "get_version", nil)

	cerr := requireClientError(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "error sending request: boom", cerr.Message)
}

func TestClient_CanceledContext(t *testing.T) {
	t.Parallel()

	srv := newRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":true}`)
	client := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Call(ctx, "get_version", nil)
	requireClientError(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ExecuteInto(t *testing.T) {
	t.Parallel()

	type project struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		IsActive string `json:"is_active"`
	}

	t.Run("decodes", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, "http://kanboard.test/jsonrpc.php", kanboard.WithHTTPClient(staticDoer(http.StatusOK,
			`{"jsonrpc":"2.0","id":1,"result":[{"id":"1","name":"Ops","is_active":"1"}]}`)))

		var projects []project
		require.NoError(t, client.CallInto(context.Background(), "get_all_projects", nil, &projects))
		assert.Equal(t, []project{{ID: "1", Name: "Ops", IsActive: "1"}}, projects)
	})

	t.Run("null leaves out untouched", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, "http://kanboard.test/jsonrpc.php", kanboard.WithHTTPClient(staticDoer(http.StatusOK,
			`{"jsonrpc":"2.0","id":1,"result":null}`)))

		p := project{Name: "unchanged"}
		require.NoError(t, client.CallInto(context.Background(), "get_project_by_id", nil, &p))
		assert.Equal(t, "unchanged", p.Name)
	})

	t.Run("type mismatch", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, "http://kanboard.test/jsonrpc.php", kanboard.WithHTTPClient(staticDoer(http.StatusOK,
			`{"jsonrpc":"2.0","id":1,"result":false}`)))

		var p project
		err := client.CallInto(context.Background(), "get_project_by_id", nil, &p)
		requireClientError(t, err)
		assert.ErrorIs(t, err, kanboard.ErrDecodingResult)
	})
}

func TestClient_LargeIntegers(t *testing.T) {
	t.Parallel()

	// 2^53 + 1 has no exact float64 representation.
	client := newTestClient(t, "http://kanboard.test/jsonrpc.php", kanboard.WithHTTPClient(staticDoer(http.StatusOK,
		`{"jsonrpc":"2.0","id":1,"result":9007199254740993}`)))

	var id int64
	require.NoError(t, client.ExecuteInto(context.Background(), "createTask", nil, &id))
	assert.Equal(t, int64(9007199254740993), id)

	var raw json.RawMessage
	require.NoError(t, client.ExecuteInto(context.Background(), "createTask", nil, &raw))
	assert.Equal(t, "9007199254740993", string(raw))

	result, err := client.Execute(context.Background(), "createTask", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(9007199254740992), result)
}
