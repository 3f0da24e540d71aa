package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scrape returns the Prometheus exposition of provider.
func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

// assertMetricLine matches name{...labels...} value, tolerating the scope labels the
// exporter adds.
func assertMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	assert.Regexp(t, name+`\{[^}]*`+labels+`[^}]*\} `+value, output)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("missionhub_test")
	require.NoError(t, err)
	assert.NotNil(t, provider.MeterProvider())
	assert.NotNil(t, provider.registry)

	_, err = NewProvider("")
	assert.NoError(t, err)
}

func TestProvider_Handler(t *testing.T) {
	provider, err := NewProvider("missionhub_test")
	require.NoError(t, err)
	defer func() { assert.NoError(t, provider.Shutdown(context.Background())) }()

	counter, err := provider.MeterProvider().Meter("missionhub_test").Int64Counter("missionhub_test_sample_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 4)

	assert.Regexp(t, `missionhub_test_sample_total\{[^}]*\} 4`, scrape(t, provider))
}

func TestProvider_Shutdown(t *testing.T) {
	provider, err := NewProvider("missionhub_test")
	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(context.Background()))

	assert.NoError(t, (&Provider{}).Shutdown(context.Background()))
}
