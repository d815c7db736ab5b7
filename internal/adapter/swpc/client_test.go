package swpc

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/aurora-watch/internal/domain"
	"github.com/couchcryptid/aurora-watch/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headerContentType = "Content-Type"

func testClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func serve(t *testing.T, status int, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set(headerContentType, contentType)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch_TextProduct(t *testing.T) {
	srv := serve(t, http.StatusOK, "text/plain", readFixture(t, "3-day-forecast.txt"))

	series, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, series, 24)
	assert.Equal(t, utc(time.October, 18, 0), series[0].Time)
}

func TestClient_Fetch_PartialParse(t *testing.T) {
	body := []byte(`[["time_tag","kp"],
		["2024-10-18 21:00:00","4.33"],
		["2024-10-19 00:00:00","5.00"],
		["2024-10-19 03:00:00","n/a"]]`)
	srv := serve(t, http.StatusOK, "application/json", body)
	c := testClient(srv.URL, 5*time.Second)

	series, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ForecastSeries{
		{Time: utc(time.October, 18, 21), Kp: 4.33},
		{Time: utc(time.October, 19, 0), Kp: 5.00},
	}, series)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.RecordsSkipped), 0)
}

func TestClient_Fetch_SortsAndDeduplicates(t *testing.T) {
	body := []byte(`[["time_tag","kp"],
		["2024-10-19 00:00:00","5.00"],
		["2024-10-18 21:00:00","4.33"],
		["2024-10-19 00:00:00","6.00"]]`)
	srv := serve(t, http.StatusOK, "application/json", body)

	series, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.True(t, series[0].Time.Before(series[1].Time))
	assert.Equal(t, 5.00, series[1].Kp, "first occurrence of a timestamp wins")
}

func TestClient_Fetch_NonOKStatus(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, "text/plain", []byte("maintenance"))

	_, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_Fetch_NoValidSamples(t *testing.T) {
	srv := serve(t, http.StatusOK, "application/json", []byte(`[["time_tag","kp"],["bad","bad"]]`))

	_, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "no valid samples")
}

func TestClient_Fetch_UnparseableBody(t *testing.T) {
	srv := serve(t, http.StatusOK, "text/html", []byte("<html>gateway error</html>"))

	_, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 50*time.Millisecond).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestClient_Fetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testClient(url, time.Second).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestNewClient_DefaultURL(t *testing.T) {
	c := NewClient("", 10*time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, DefaultURL, c.url)
	assert.Equal(t, 10*time.Second, c.httpClient.Timeout)
}
