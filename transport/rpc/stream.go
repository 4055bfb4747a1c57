package rpc

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/viant/rover/session"
)

type contextKey string

// streamKey carries the *stream of an SSE request.
const streamKey = contextKey("rover-stream")

// stream ties a rover session to the request serving its notifications.
type stream struct {
	ready  <-chan struct{}
	cancel context.CancelFunc
}

// follow ends the request once s has ended.
func (st *stream) follow(s *session.Session) {
	go func() {
		<-s.Done()
		st.cancel()
	}()
}

var errStreamClosed = errors.New("notification stream closed")

// streamWriter serializes writes and flushes on a long-lived response. The
// jsonrpc transports write to it from the request goroutine, the keepalive
// loop and the session writer. flushed is closed on the first successful
// flush; writes after the request has returned fail instead of touching a
// finished response.
type streamWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	closed  bool
	once    sync.Once
	flushed chan struct{}
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	return &streamWriter{ResponseWriter: w, flushed: make(chan struct{})}
}

func (w *streamWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, errStreamClosed
	}
	return w.ResponseWriter.Write(data)
}

func (w *streamWriter) Flush() {
	w.mu.Lock()
	flushed := !w.closed
	if flushed {
		if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
			flusher.Flush()
		}
	}
	w.mu.Unlock()
	if flushed {
		w.once.Do(func() { close(w.flushed) })
	}
}

func (w *streamWriter) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// sseStream holds rover delivery on an SSE stream until the endpoint event
// is out, and ends the stream with its rover session.
func sseStream(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		writer := newStreamWriter(w)
		defer writer.close()
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		ctx = context.WithValue(ctx, streamKey, &stream{ready: writer.flushed, cancel: cancel})
		next.ServeHTTP(writer, r.WithContext(ctx))
	})
}

// streamableStream ties rover sessions to the streamable transport:
//   - POST replies are always returned inline as JSON, so the session writer
//     is only ever the GET stream;
//   - a GET stream registers a rover session for its lifetime, released on
//     the first keepalive flush; the stream ends with the rover session;
//   - DELETE ends the rover session along with the transport session.
func (s *Server) streamableStream(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		switch r.Method {
		case http.MethodPost:
			r = r.Clone(r.Context())
			r.Header.Set("Accept", jsonMime)
		case http.MethodDelete:
			if id != "" {
				s.closeStream(id)
			}
		case http.MethodGet:
			if id == "" {
				break
			}
			writer := newStreamWriter(w)
			defer writer.close()
			ctx, cancel := context.WithCancel(r.Context())
			defer cancel()
			if aSession := s.openStream(ctx, id, writer.flushed); aSession != nil {
				(&stream{cancel: cancel}).follow(aSession)
			}
			next.ServeHTTP(writer, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}
