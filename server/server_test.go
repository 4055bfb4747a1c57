package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/rover/schema"
	"github.com/viant/rover/session"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

type fakeLink struct {
	mu    sync.Mutex
	state schema.LinkState
	sent  []schema.Command
}

func (l *fakeLink) State() schema.LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *fakeLink) Send(command schema.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, command)
	return nil
}

const assetsURL = "mem://localhost/rover/frontend"

func uploadAssets(t *testing.T) {
	t.Helper()
	fs := afs.New()
	ctx := context.Background()
	require.NoError(t, fs.Upload(ctx, assetsURL+"/index.html", 0644, strings.NewReader("<html>rover</html>")))
	require.NoError(t, fs.Upload(ctx, assetsURL+"/js/app.js", 0644, strings.NewReader("console.log('rover')")))
}

func newTestServer(t *testing.T, options ...Option) (*httptest.Server, *session.Manager) {
	t.Helper()
	manager := session.NewManager(&fakeLink{state: schema.Connected}, session.WithLogger(zap.NewNop()))
	options = append([]Option{WithLogger(zap.NewNop())}, options...)
	srv, err := New(manager, options...)
	require.NoError(t, err)
	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(httpServer.Close)
	return httpServer, manager
}

func TestNew_RequiresManager(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	status := &healthStatus{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(status))
	assert.Equal(t, &healthStatus{Status: "ok", Link: "connected", Serial: true}, status)
}

func TestServer_Assets(t *testing.T) {
	uploadAssets(t)
	srv, _ := newTestServer(t, WithAssetsURL(assetsURL))

	var testCases = []struct {
		description string
		method      string
		path        string
		status      int
		contentType string
		body        string
	}{
		{description: "index", method: http.MethodGet, path: "/", status: http.StatusOK, contentType: "text/html", body: "<html>rover</html>"},
		{description: "explicit index", method: http.MethodGet, path: "/index.html", status: http.StatusOK, contentType: "text/html", body: "<html>rover</html>"},
		{description: "nested script", method: http.MethodGet, path: "/js/app.js", status: http.StatusOK, contentType: "javascript", body: "console.log('rover')"},
		{description: "head", method: http.MethodHead, path: "/js/app.js", status: http.StatusOK, contentType: "javascript"},
		{description: "missing", method: http.MethodGet, path: "/missing.css", status: http.StatusNotFound},
		{description: "traversal stays in root", method: http.MethodGet, path: "/../../etc/passwd", status: http.StatusNotFound},
		{description: "post rejected", method: http.MethodPost, path: "/", status: http.StatusMethodNotAllowed},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			req, err := http.NewRequest(testCase.method, srv.URL+testCase.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, testCase.status, resp.StatusCode)
			if testCase.contentType != "" {
				assert.Contains(t, resp.Header.Get("Content-Type"), testCase.contentType)
			}
			if testCase.body != "" {
				data, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, testCase.body, string(data))
			}
		})
	}
}

func TestServer_CORS(t *testing.T) {
	srv, _ := newTestServer(t, WithCORS(LocalCors("8000")))

	t.Run("preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/rpc", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:8000")
		req.Header.Set(AllControlRequestHeader, http.MethodPost)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "http://localhost:8000", resp.Header.Get(AllowOriginHeader))
		assert.Equal(t, http.MethodPost, resp.Header.Get(AllowMethodsHeader))
	})

	t.Run("foreign origin rejected", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://evil.example")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Empty(t, resp.Header.Get(AllowOriginHeader))
	})

	t.Run("no origin allowed", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestServer_CORSPolicyHeaders(t *testing.T) {
	credentials := true
	maxAge := int64(600)
	srv, _ := newTestServer(t, WithCORS(&Cors{
		AllowOrigins:     []string{"http://rover.local"},
		AllowHeaders:     []string{"Content-Type", "X-Rover"},
		AllowCredentials: &credentials,
		MaxAge:           &maxAge,
	}))
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/rpc", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://rover.local")
	req.Header.Set(AllControlRequestHeader, http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "Content-Type, X-Rover", resp.Header.Get(AllowHeadersHeader))
	assert.Equal(t, "true", resp.Header.Get(AllowCredentialsHeader))
	assert.Equal(t, "600", resp.Header.Get(MaxAgeHeader))
}

func TestServer_Websocket(t *testing.T) {
	srv, manager := newTestServer(t, WithCORS(&Cors{AllowOrigins: []string{"http://localhost:8000"}}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, err := websocket.Dial(wsURL, "", "http://evil.example")
	assert.Error(t, err)

	conn, err := websocket.Dial(wsURL, "", "http://localhost:8000")
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	status := &schema.Message{}
	require.NoError(t, websocket.JSON.Receive(conn, status))
	assert.EqualValues(t, schema.TypeStatus, status.Type)
	require.NoError(t, websocket.Message.Send(conn, `{"cmd":"fwd"}`))
	reply := &schema.Message{}
	require.NoError(t, websocket.JSON.Receive(conn, reply))
	assert.Equal(t, schema.NewAck(schema.Forward), reply)
	assert.EqualValues(t, 1, manager.Count())
}

func TestChainMiddlewareHandlers(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	handler := ChainMiddlewareHandlers(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mark("first"), mark("second"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
