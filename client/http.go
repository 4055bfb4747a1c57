package client

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
)

// newHTTPClient returns a client whose requests are all aborted once ctx is
// done. The streamable transport opens its notification stream with a
// background context, so this is the only way to end it.
func newHTTPClient(ctx context.Context) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar, Transport: &boundTransport{ctx: ctx, base: http.DefaultTransport}}
}

type boundTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *boundTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancel(req.Context())
	stop := context.AfterFunc(t.ctx, cancel)
	release := func() {
		stop()
		cancel()
	}
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		release()
		return nil, err
	}
	resp.Body = &boundBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

// boundBody releases the request context once the body is closed.
type boundBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *boundBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}
