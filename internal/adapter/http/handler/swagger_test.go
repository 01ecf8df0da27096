package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serveDocs(h gin.HandlerFunc, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)
	h(c)
	return w
}

func TestSwaggerUI(t *testing.T) {
	w := serveDocs(SwaggerUI, "/swagger")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `url: "/swagger/spec"`)
}

func TestSwaggerSpec(t *testing.T) {
	t.Cleanup(func() { SetSwaggerSpec(nil) })

	tests := []struct {
		name        string
		doc         []byte
		wantCode    int
		contentType string
	}{
		{"not loaded", nil, http.StatusNotFound, ""},
		{"yaml", []byte("openapi: 3.0.3\ninfo:\n  title: Token Ledger\n"), http.StatusOK, "application/yaml"},
		{"json", []byte(` {"openapi":"3.0.3"}`), http.StatusOK, "application/json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			SetSwaggerSpec(tc.doc)
			w := serveDocs(SwaggerSpec, "/swagger/spec")

			assert.Equal(t, tc.wantCode, w.Code)
			if tc.contentType != "" {
				assert.Contains(t, w.Header().Get("Content-Type"), tc.contentType)
				assert.Equal(t, string(tc.doc), w.Body.String())
			}
		})
	}
}
