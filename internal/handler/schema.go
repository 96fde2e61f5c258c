package handler

import (
	_ "embed"
	"fmt"
	"net/http"
)

//go:embed openapi.yaml
var openAPISpec []byte

const swaggerPage = `<!DOCTYPE html>
<html>
<head>
<title>AromaStream API</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>SwaggerUIBundle({url: %q, dom_id: "#swagger-ui"});</script>
</body>
</html>
`

const redocPage = `<!DOCTYPE html>
<html>
<head>
<title>AromaStream API</title>
</head>
<body>
<redoc spec-url=%q></redoc>
<script src="https://cdn.jsdelivr.net/npm/redoc@2/bundles/redoc.standalone.js"></script>
</body>
</html>
`

// Schema serves the OpenAPI document of the API
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(openAPISpec); err != nil {
		h.log.Errorf("Failed to write schema: %v", err)
	}
}

// SwaggerUI renders the schema with Swagger UI
func (h *Handler) SwaggerUI(w http.ResponseWriter, r *http.Request) {
	h.writeDocsPage(w, swaggerPage)
}

// Redoc renders the schema with ReDoc
func (h *Handler) Redoc(w http.ResponseWriter, r *http.Request) {
	h.writeDocsPage(w, redocPage)
}

func (h *Handler) writeDocsPage(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, page, apiPrefix+"/schema"); err != nil {
		h.log.Errorf("Failed to write docs page: %v", err)
	}
}
