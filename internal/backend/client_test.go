package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
}

func TestProbe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/status", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(Connection{
			Connected:     true,
			UserInfo:      &UserInfo{Email: "a@b.c", IsActive: true},
			StatusMessage: "Connected",
		})
	})

	conn, err := c.Probe(context.Background())
	require.NoError(t, err)
	assert.True(t, conn.Connected)
	require.NotNil(t, conn.UserInfo)
	assert.Equal(t, "a@b.c", conn.UserInfo.Email)
}

func TestProbe_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // force connection refused

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	conn, err := c.Probe(context.Background())
	require.Error(t, err)
	assert.False(t, conn.Connected)
	assert.Equal(t, "Not connected", conn.StatusMessage)
}

func TestListModels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/models", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"1","name":"gpt-4o"},{"id":"2","name":"claude"}]`))
	})

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, ModelOption{ID: "1", Name: "gpt-4o"}, models[0])
}

func TestGetPreference_Forms(t *testing.T) {
	cases := []struct {
		name string
		body string
		want *string
	}{
		{"string id", `{"selectedModelId":"7"}`, strPtr("7")},
		{"numeric id", `{"selectedModelId":7}`, strPtr("7")},
		{"explicit null", `{"selectedModelId":null}`, nil},
		{"absent", `{}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			pref, err := c.GetPreference(context.Background())
			require.NoError(t, err)
			if tc.want == nil {
				assert.Nil(t, pref.SelectedModelID)
			} else {
				require.NotNil(t, pref.SelectedModelID)
				assert.Equal(t, *tc.want, *pref.SelectedModelID)
			}
		})
	}
}

func TestPutPreference(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		if v, ok := raw["selectedModelId"].(string); ok {
			got = v
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.PutPreference(context.Background(), strPtr("42")))
	assert.Equal(t, "42", got)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	_, err := c.ListModels(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
	assert.Equal(t, "nope", statusErr.Body)
}

func strPtr(s string) *string { return &s }
