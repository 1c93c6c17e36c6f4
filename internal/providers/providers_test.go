package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/enrichment"
	"enrichment-engine/internal/merge"
)

func companyShape(t *testing.T) merge.Shape {
	t.Helper()
	shape, err := merge.NewShape(
		merge.Field{Name: "company_name", Kind: merge.KindString},
		merge.Field{Name: "industry", Kind: merge.KindString},
		merge.Field{Name: "employee_count", Kind: merge.KindNumber},
	)
	require.NoError(t, err)
	return shape
}

func TestHTTPClientCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/acme.com", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Acme Corp","category":{"industry":"Manufacturing"}}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(&HTTPConfig{
		URLTemplate: server.URL + "/companies/{{.domain}}",
		Auth:        &AuthConfig{Type: "bearer", Token: "secret-token"},
	})
	require.NoError(t, err)

	result, err := client.Call(context.Background(), map[string]interface{}{"domain": "acme.com"})
	require.NoError(t, err)

	response, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", response["name"])
}

func TestHTTPClientStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantType  errors.ErrorType
		transient bool
	}{
		{"server error", http.StatusInternalServerError, errors.ErrTypeProvider, true},
		{"bad gateway", http.StatusBadGateway, errors.ErrTypeProvider, true},
		{"throttled", http.StatusTooManyRequests, errors.ErrTypeRateLimit, false},
		{"request timeout", http.StatusRequestTimeout, errors.ErrTypeTimeout, true},
		{"not found", http.StatusNotFound, errors.ErrTypeProvider, false},
		{"unauthorized", http.StatusUnauthorized, errors.ErrTypeProvider, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client, err := NewHTTPClient(&HTTPConfig{URL: server.URL})
			require.NoError(t, err)

			_, err = client.Call(context.Background(), nil)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errors.GetType(err))
			assert.Equal(t, tt.transient, errors.IsTransient(err))
		})
	}
}

func TestHTTPClientErrorOmitsResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ssn":"078-05-1120","detail":"record blocked"}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(&HTTPConfig{URL: server.URL})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.NotContains(t, err.Error(), "078-05-1120")
	assert.NotContains(t, err.Error(), "record blocked")
}

func TestHTTPClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := NewHTTPClient(&HTTPConfig{URL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Call(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeTimeout))
}

func TestHTTPClientProbe(t *testing.T) {
	var sawHead bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHead = r.Method == http.MethodHead
	}))
	defer server.Close()

	client, err := NewHTTPClient(&HTTPConfig{URL: server.URL})
	require.NoError(t, err)

	require.NoError(t, client.Probe(context.Background()))
	assert.True(t, sawHead)
}

func TestClientEnricherMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Acme Corp","category":{"industry":"Manufacturing"},"size":250}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(&HTTPConfig{URL: server.URL})
	require.NoError(t, err)

	enricher, err := NewClientEnricher(
		enrichment.Descriptor{ProviderName: "clearbit", Type: "company_profile", Priority: 10},
		companyShape(t),
		client,
		map[string]string{
			"company_name":   "name",
			"industry":       "category.industry",
			"employee_count": "size",
		},
	)
	require.NoError(t, err)

	raw, err := enricher.Fetch(context.Background(), &enrichment.Request{
		Type:       "company_profile",
		Parameters: map[string]interface{}{"domain": "acme.com"},
	})
	require.NoError(t, err)

	mapped, err := enricher.Map(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", mapped["company_name"])
	assert.Equal(t, "Manufacturing", mapped["industry"])
	assert.Equal(t, float64(250), mapped["employee_count"])
}

func TestClientEnricherRejectsUnknownMappingField(t *testing.T) {
	client, err := NewHTTPClient(&HTTPConfig{URL: "http://localhost"})
	require.NoError(t, err)

	_, err = NewClientEnricher(
		enrichment.Descriptor{ProviderName: "clearbit", Type: "company_profile"},
		companyShape(t),
		client,
		map[string]string{"revenue": "financials.revenue"},
	)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestLookupEnricher(t *testing.T) {
	enricher, err := NewLookupEnricher(
		enrichment.Descriptor{ProviderName: "internal-db", Type: "company_profile", Priority: 1},
		companyShape(t),
		"domain",
	)
	require.NoError(t, err)

	enricher.Load("acme.com", map[string]interface{}{
		"company_name": "Acme Corp",
		"industry":     "Manufacturing",
		"internal_id":  42,
	})

	t.Run("hit", func(t *testing.T) {
		raw, err := enricher.Fetch(context.Background(), &enrichment.Request{
			Parameters: map[string]interface{}{"domain": "acme.com"},
		})
		require.NoError(t, err)

		mapped, err := enricher.Map(raw)
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", mapped["company_name"])
		// Fields outside the shape are dropped.
		assert.NotContains(t, mapped, "internal_id")
	})

	t.Run("miss advances fallback", func(t *testing.T) {
		_, err := enricher.Fetch(context.Background(), &enrichment.Request{
			Parameters: map[string]interface{}{"domain": "unknown.example"},
		})
		require.Error(t, err)
		assert.True(t, errors.AdvancesFallback(err))
		assert.False(t, errors.IsTransient(err))
	})

	t.Run("missing key parameter", func(t *testing.T) {
		_, err := enricher.Fetch(context.Background(), &enrichment.Request{
			Parameters: map[string]interface{}{},
		})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	})
}
