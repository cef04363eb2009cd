package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocuments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
		ok   bool
	}{
		{"json array", `["123","456"]`, []string{"123", "456"}, true},
		{"delimited string", `"123, 456\n789"`, []string{"123", "456", "789"}, true},
		{"single value string", `"123"`, []string{"123"}, true},
		{"number", `42`, nil, false},
		{"empty", ``, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeDocuments([]byte(tt.raw))
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseID(t *testing.T) {
	router := chi.NewRouter()
	var gotValid bool
	router.Get("/x/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, gotValid = parseID(w, r)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x/0f0e8c72-4a1f-4bde-9a3c-3e1f5a2b6c7d", nil))
	assert.True(t, gotValid)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x/not-a-uuid", nil))
	assert.False(t, gotValid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"id inválido"}`, rec.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	h := securityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
