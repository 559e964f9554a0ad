package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	require.NotNil(t, listingPagesTotal)
	require.NotNil(t, articlesTotal)
	require.NotNil(t, stageDurationSeconds)
	require.NotNil(t, activeSessions)
}

func TestObserveCounters(t *testing.T) {
	Init()
	before := testutil.ToFloat64(articlesTotal.WithLabelValues("succeeded"))
	ObserveArticle("succeeded")
	ObserveArticle("succeeded")
	assert.Equal(t, before+2, testutil.ToFloat64(articlesTotal.WithLabelValues("succeeded")))

	beforePages := testutil.ToFloat64(listingPagesTotal.WithLabelValues("failed"))
	ObserveListingPage("failed")
	assert.Equal(t, beforePages+1, testutil.ToFloat64(listingPagesTotal.WithLabelValues("failed")))

	ObserveStage("harvest", 3*time.Second)
	assert.Positive(t, testutil.CollectAndCount(stageDurationSeconds))
}

func TestActiveSessionsGauge(t *testing.T) {
	Init()
	base := testutil.ToFloat64(activeSessions)
	IncActiveSessions()
	IncActiveSessions()
	assert.Equal(t, base+2, testutil.ToFloat64(activeSessions))
	DecActiveSessions()
	DecActiveSessions()
	assert.Equal(t, base, testutil.ToFloat64(activeSessions))
}

func TestRouterServesMetrics(t *testing.T) {
	Init()
	ObserveArticle("succeeded")
	ts := httptest.NewServer(Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() {
		if errInner := resp.Body.Close(); errInner != nil {
			t.Log(errInner)
		}
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "boxarchiver_articles_total")

	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")), float64(1))
}

func TestRouterUnknownRoute(t *testing.T) {
	ts := httptest.NewServer(Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerStartShutdown(t *testing.T) {
	srv, err := Start("127.0.0.1:0", nil)
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
	_, err = http.Get("http://" + srv.Addr() + "/metrics")
	assert.Error(t, err)
}
