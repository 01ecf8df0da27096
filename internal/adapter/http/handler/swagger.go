package handler

import (
	"bytes"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// openAPIDoc is the document served at /swagger/spec. It is set once at
// startup and read on every request.
var openAPIDoc atomic.Pointer[[]byte]

// SetSwaggerSpec installs the OpenAPI document. nil unloads it.
func SetSwaggerSpec(doc []byte) {
	if doc == nil {
		openAPIDoc.Store(nil)
		return
	}
	openAPIDoc.Store(&doc)
}

// SwaggerSpec serves the OpenAPI document as YAML, or as JSON when the
// document is JSON.
func SwaggerSpec(c *gin.Context) {
	doc := openAPIDoc.Load()
	if doc == nil {
		c.String(http.StatusNotFound, "OpenAPI document not loaded")
		return
	}

	contentType := "application/yaml"
	if bytes.HasPrefix(bytes.TrimSpace(*doc), []byte("{")) {
		contentType = "application/json"
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, contentType, *doc)
}

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Token Ledger API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: "/swagger/spec", dom_id: "#swagger-ui" });
  </script>
</body>
</html>`

// SwaggerUI renders Swagger UI pointed at /swagger/spec.
func SwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerUIPage))
}
