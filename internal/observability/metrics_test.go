package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/vicictl/internal/auth"
	"github.com/danmuck/vicictl/internal/protocol/session"
	"github.com/danmuck/vicictl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDefaultSessionMetricsIsIdempotent(t *testing.T) {
	testlog.Start(t)
	a := DefaultSessionMetrics()
	b := DefaultSessionMetrics()
	require.Same(t, a, b)
	a.ObserveExchange("version", session.KindRequest, session.OutcomeOK, 12*time.Millisecond)
}

func TestSessionMetricsRecords(t *testing.T) {
	testlog.Start(t)
	m := NewSessionMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.ObserveExchange("initiate", session.KindStreamed, session.OutcomeCancelled, time.Second)
	m.ObserveExchange("initiate", session.KindStreamed, session.OutcomeCancelled, time.Second)
	m.ObserveEvent("control-log", true)
	m.ObserveEvent("control-log", false)
	m.ObserveEvent("control-log", false)
	m.ObserveSubscription("control-log", 1)

	require.Equal(t, 2.0, testutil.ToFloat64(m.exchanges.WithLabelValues("initiate", "streamed", "cancelled")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("control-log", "true")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("control-log", "false")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.subscriptions.WithLabelValues("control-log")))

	m.ObserveSubscription("control-log", -1)
	require.Equal(t, 0.0, testutil.ToFloat64(m.subscriptions.WithLabelValues("control-log")))

	require.Error(t, m.Register(reg), "duplicate registration")
}

func TestMetricsHandlerServesText(t *testing.T) {
	testlog.Start(t)
	m := NewSessionMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	m.ObserveExchange("version", session.KindRequest, session.OutcomeOK, time.Millisecond)

	srv := httptest.NewServer(MetricsHandler(zerolog.Nop(), reg, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `vicictl_session_exchanges_total{command="version",kind="request",outcome="ok"} 1`)

	missing, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestMetricsHandlerGuard(t *testing.T) {
	testlog.Start(t)
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(MetricsHandler(zerolog.Nop(), reg, auth.StaticToken{Token: "t0ken"}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer t0ken")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
