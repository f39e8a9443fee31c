package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyra-voice/lyra/pkg/core"
)

func TestClassify(t *testing.T) {
	var gotReq classifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/classify", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"topIntent":  "Get_Weather",
			"confidence": 0.95,
			"entities": []map[string]string{
				{"category": "weather_location", "text": "Berlin"},
				{"category": "weather_location", "text": "Hamburg"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	cls, err := c.Classify(context.Background(), "weather in berlin", "en")
	require.NoError(t, err)

	assert.Equal(t, "weather in berlin", gotReq.Text)
	assert.Equal(t, "en", gotReq.Language)
	assert.Equal(t, "Get_Weather", cls.TopIntent)
	assert.Equal(t, 0.95, cls.Score)
	assert.Equal(t, []string{"Berlin", "Hamburg"}, cls.Entities["weather_location"])
}

func TestClassifyRetriesTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"topIntent": "Get_Time", "confidence": 0.9})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", WithRetries(3))
	cls, err := c.Classify(context.Background(), "what time is it", "en")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "Get_Time", cls.TopIntent)
}

// Client errors are not retried; the turn aborts immediately.
func TestClassifyBadRequestFailsFast(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", WithRetries(5))
	_, err := c.Classify(context.Background(), "???", "en")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var apiErr *core.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "classifier", apiErr.Collaborator)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestClassifyExhaustedRetriesSurfaceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", WithRetries(1))
	_, err := c.Classify(context.Background(), "hello", "en")
	require.Error(t, err)

	var apiErr *core.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}
