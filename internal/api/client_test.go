package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateCase(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /case", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "a sufficiently long case narrative", req.Text)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"run_id":"abc123def456"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	runID, err := NewClient(srv.URL).CreateCase(context.Background(), "a sufficiently long case narrative")
	require.NoError(t, err)
	require.Equal(t, "abc123def456", runID)
}

func TestCreateCase_DetailErrorSurfacedVerbatim(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"Text must be at least 20 characters"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).CreateCase(context.Background(), "short")
	require.EqualError(t, err, "Text must be at least 20 characters")
}

func TestCreateCase_StatusFallbackMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream exploded`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).CreateCase(context.Background(), "a sufficiently long case narrative")
	require.EqualError(t, err, "request failed with status 502")
}

func TestGetCase(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /case/r1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"run_id":"r1","fact_pattern":{"summary":"s","parties":[],"issues":[],"jurisdiction":"California"},"statutes":[],"case_law":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	result, err := NewClient(srv.URL).GetCase(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "r1", result.RunID)
	require.Equal(t, "California", result.FactPattern.Jurisdiction)
}

func TestHealth_SwallowsFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	require.True(t, NewClient(srv.URL).Health(context.Background()))
	srv.Close()

	// Unreachable server degrades to false, never an error.
	require.False(t, NewClient(srv.URL).Health(context.Background()))
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /validate-password", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if req.Password == "opensesame" {
			_, _ = w.Write([]byte(`{"valid":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"valid":false}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL)
	valid, err := client.ValidatePassword(context.Background(), "opensesame")
	require.NoError(t, err)
	require.True(t, valid)

	valid, err = client.ValidatePassword(context.Background(), "wrong")
	require.NoError(t, err)
	require.False(t, valid)
}
