package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/apperrors"
	"github.com/commercelake/etl-engine/pkg/config"
)

func newHTTP(t *testing.T, src config.Source) *HTTPExtractor {
	t.Helper()
	ext, err := New(src, nil, zap.NewNop())
	require.NoError(t, err)
	return ext.(*HTTPExtractor)
}

func jsonServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPExtractResultsKey(t *testing.T) {
	srv := jsonServer(t, `{"results":[{"x":1},{"x":2}]}`)

	ext := newHTTP(t, config.Source{Type: "http", URL: srv.URL})
	require.True(t, ext.Validate(context.Background()))

	table, err := ext.Extract(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, table.RowCount())
	assert.Equal(t, int64(1), table.Rows[0]["x"])
}

func TestHTTPExtractPrefersDataOverResults(t *testing.T) {
	srv := jsonServer(t, `{"results":[{"x":1}],"data":[{"y":9},{"y":8}]}`)

	ext := newHTTP(t, config.Source{Type: "http", URL: srv.URL})
	require.True(t, ext.Validate(context.Background()))

	table, err := ext.Extract(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, table.RowCount())
	assert.Equal(t, []string{"y"}, table.Columns)
}

func TestHTTPExtractMappingWithoutRowKeys(t *testing.T) {
	srv := jsonServer(t, `{"status":"ok","count":3}`)

	ext := newHTTP(t, config.Source{Type: "http", URL: srv.URL})
	require.True(t, ext.Validate(context.Background()))

	table, err := ext.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, table.RowCount())
	assert.Equal(t, "ok", table.Rows[0]["status"])
	assert.Equal(t, int64(3), table.Rows[0]["count"])
}

func TestHTTPExtractSendsConfiguredRequest(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			got = r.Clone(context.Background())
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	ext := newHTTP(t, config.Source{
		Type:     "http",
		URL:      srv.URL,
		Headers:  map[string]string{"X-Api-Key": "k123"},
		Query:    map[string]string{"page": "1"},
		Username: "svc",
		Password: "pw",
	})
	require.True(t, ext.Validate(context.Background()))

	_, err := ext.Extract(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "k123", got.Header.Get("X-Api-Key"))
	assert.Equal(t, "1", got.URL.Query().Get("page"))
	user, pass, ok := got.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "svc", user)
	assert.Equal(t, "pw", pass)
}

func TestHTTPExtractNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	ext := newHTTP(t, config.Source{Type: "http", URL: srv.URL})
	require.True(t, ext.Validate(context.Background()))

	_, err := ext.Extract(context.Background())
	require.ErrorIs(t, err, apperrors.ErrExtraction)
}

func TestHTTPValidateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	ext := newHTTP(t, config.Source{Type: "http", URL: srv.URL})
	assert.False(t, ext.Validate(context.Background()))

	_, err := ext.Extract(context.Background())
	require.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestHTTPValidateUnreachableHost(t *testing.T) {
	ext := newHTTP(t, config.Source{Type: "http", URL: "http://127.0.0.1:1/nothing"})
	assert.False(t, ext.Validate(context.Background()))
}

func TestHTTPExtractScalarBody(t *testing.T) {
	srv := jsonServer(t, `42`)

	ext := newHTTP(t, config.Source{Type: "http", URL: srv.URL})
	require.True(t, ext.Validate(context.Background()))

	_, err := ext.Extract(context.Background())
	require.ErrorIs(t, err, apperrors.ErrUnsupportedStructure)
}
