package collybrowser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionNavigateAndHTML(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		agents []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.UserAgent())
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>page " + r.URL.Query().Get("page") + "</body></html>"))
	}))
	defer srv.Close()

	opener := New(Config{UserAgent: "box-agent"})
	s, err := opener.Open(context.Background())
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	_, err = s.HTML(context.Background())
	require.ErrorIs(t, err, ErrNoPage)

	require.NoError(t, s.Navigate(context.Background(), srv.URL+"/boxes/1?page=1", time.Second))
	html, err := s.HTML(context.Background())
	require.NoError(t, err)
	assert.Contains(t, html, "page 1")

	// Revisiting the same URL in a fresh session must not be deduplicated.
	other, err := opener.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, other.Navigate(context.Background(), srv.URL+"/boxes/1?page=1", time.Second))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"box-agent", "box-agent"}, agents)
}

func TestSessionNavigateHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	s, err := New(Config{}).Open(context.Background())
	require.NoError(t, err)
	err = s.Navigate(context.Background(), srv.URL, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestSessionNavigateCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := New(Config{}).Open(context.Background())
	require.NoError(t, err)
	err = s.Navigate(ctx, srv.URL, 5*time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) { s.onResponse = cb }
func (s *stubHooks) OnError(cb colly.ErrorCallback)       { s.onError = cb }

func TestConfigureHooks(t *testing.T) {
	t.Parallel()

	var (
		body     []byte
		fetchErr error
	)
	hooks := &stubHooks{}
	configureHooks(hooks, &body, &fetchErr)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	hooks.onResponse(&colly.Response{Body: []byte("ok")})
	assert.Equal(t, "ok", string(body))

	hooks.onError(&colly.Response{StatusCode: http.StatusBadGateway}, errors.New("bad gateway"))
	require.Error(t, fetchErr)
	assert.Equal(t, "status 502: bad gateway", fetchErr.Error())
}
