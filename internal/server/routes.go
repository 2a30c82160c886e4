package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Extraction
	mux.HandleFunc("POST /extract-images", s.handleExtractImages)   // JSON or form pdfUrl
	mux.HandleFunc("GET /extract-images-sse", s.handleExtractSSE)   // ?pdfUrl=
	mux.HandleFunc("GET /extract-images-ws", s.handleExtractSocket) // ?pdfUrl=

	// Downloads (cache-first)
	mux.HandleFunc("GET /download-zip", s.handleDownloadZip)
	mux.HandleFunc("GET /download-pdf", s.handleDownloadPDF)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}
