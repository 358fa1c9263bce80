package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAPIPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/api/status", true},
		{"/api/queue/execution", true},
		{"/api/", true},
		{"/view/task/1", true},
		{"/mcp", true},

		{"/", false},
		{"/index.html", false},
		{"/app.js", false},
		{"/health", false},
		{"/api", false},
		{"/apiary", false},
		{"/mcpserver", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isAPIPath(tt.path))
		})
	}
}

func TestSetCacheHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	setCacheHeaders(rec, "/index.html")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	setCacheHeaders(rec, "/app.js")
	assert.Equal(t, "public, max-age=60, must-revalidate", rec.Header().Get("Cache-Control"))
}
