package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/translate", r.URL.Path)
		var req translateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "en", req.From)
		assert.Equal(t, "de", req.To)
		json.NewEncoder(w).Encode(translateResponse{Text: "Es ist Mittag."})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	assert.Equal(t, "Es ist Mittag.", c.Translate(context.Background(), "It is noon.", "en", "de"))
}

func TestTranslateSameLanguageShortCircuits(t *testing.T) {
	c := NewClient("http://unreachable.invalid", "")
	assert.Equal(t, "hello", c.Translate(context.Background(), "hello", "en", "en"))
	assert.Equal(t, "", c.Translate(context.Background(), "", "en", "de"))
}

// Translation failures degrade to the apology line carrying the original
// text; the pipeline keeps speaking something intelligible.
func TestTranslateFailureEmbedsOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	got := c.Translate(context.Background(), "It is noon.", "en", "de")
	assert.Equal(t, "Sorry, I could not translate that. The original message was: It is noon.", got)
}

func TestTranslateEmptyResponseDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(translateResponse{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	got := c.Translate(context.Background(), "hi", "en", "fr")
	assert.Contains(t, got, "The original message was: hi")
}

func TestSupported(t *testing.T) {
	c := NewClient("", "")
	assert.True(t, c.Supported("de"))
	assert.True(t, c.Supported("ja"))
	assert.False(t, c.Supported("tlh"))
	assert.False(t, c.Supported("German"))
}

func TestLanguageCode(t *testing.T) {
	cases := []struct {
		ref  string
		code string
		ok   bool
	}{
		{"fr", "fr", true},
		{"French", "fr", true},
		{"  german ", "de", true},
		{"JAPANESE", "ja", true},
		{"klingon", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		code, ok := LanguageCode(tc.ref)
		assert.Equal(t, tc.ok, ok, tc.ref)
		assert.Equal(t, tc.code, code, tc.ref)
	}
}

func TestLanguageName(t *testing.T) {
	name, ok := LanguageName("pt")
	assert.True(t, ok)
	assert.Equal(t, "Portuguese", name)

	_, ok = LanguageName("xx")
	assert.False(t, ok)
}
