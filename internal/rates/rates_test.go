package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRateFromPriceField(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"price": 36.58}`)

	rate, err := NewHTTPProvider(srv.URL).Rate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("36.58")))
}

func TestRateFallsBackToPromedio(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"promedio": "40.25"}`)

	rate, err := NewHTTPProvider(srv.URL).Rate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("40.25")))
}

func TestRatePrefersPriceOverPromedio(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"price": 36, "promedio": 99}`)

	rate, err := NewHTTPProvider(srv.URL).Rate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(36)))
}

func TestRateRejectsMissingFields(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"other": 1}`)

	_, err := NewHTTPProvider(srv.URL).Rate(context.Background())
	assert.Error(t, err)
}

func TestRateRejectsNonPositive(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"price": 0}`)

	_, err := NewHTTPProvider(srv.URL).Rate(context.Background())
	assert.Error(t, err)
}

func TestRateRejectsBadStatus(t *testing.T) {
	srv := serve(t, http.StatusBadGateway, `oops`)

	_, err := NewHTTPProvider(srv.URL).Rate(context.Background())
	assert.Error(t, err)
}

func TestStaticProvider(t *testing.T) {
	rate, err := Static{Value: decimal.NewFromInt(40)}.Rate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(40)))

	_, err = Static{}.Rate(context.Background())
	assert.Error(t, err)
}
