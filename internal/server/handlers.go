package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	pdfpages "github.com/porticus-lab/go-pdf-pages"
	"github.com/porticus-lab/go-pdf-pages/internal/common"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Same policy as the CORS middleware
	},
}

// handleExtractImages runs a batch extraction and returns every page as base64
func (s *Server) handleExtractImages(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)

	pdfURL, err := pdfURLFromBody(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if pdfURL == "" {
		WriteError(w, http.StatusBadRequest, missingURLMessage)
		return
	}

	logger.Info().Str("pdf_url", pdfURL).Msg("Extraction requested")

	res, err := s.extractor.Extract(r.Context(), pdfURL)
	if err != nil {
		logger.Error().Err(err).Str("pdf_url", pdfURL).Msg("Extraction failed")
		WriteError(w, statusFor(err), err.Error())
		return
	}

	logger.Info().
		Str("handle", res.Handle()).
		Int("images", res.Len()).
		Bool("cached", res.Cached()).
		Msg("Extraction success")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"images": res.Base64(),
	})
}

// handleExtractSSE streams each page image as a server-sent event
func (s *Server) handleExtractSSE(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	flusher.Flush()

	pdfURL := pdfURLFromQuery(r)
	logger.Info().Str("pdf_url", pdfURL).Msg("SSE extraction requested")

	emit := func(ev pdfpages.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to encode event")
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}

	res, err := s.extractor.Stream(r.Context(), pdfURL, emit)
	if err != nil {
		logger.Warn().Err(err).Str("pdf_url", pdfURL).Msg("SSE extraction failed")
		return
	}
	logger.Info().Str("handle", res.Handle()).Int("images", res.Len()).Msg("SSE extraction complete")
}

// handleExtractSocket streams the same events as handleExtractSSE over a
// WebSocket. The extraction is cancelled when the client goes away.
func (s *Server) handleExtractSocket(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.logger)
	pdfURL := pdfURLFromQuery(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader loop: any read error means the client closed the socket.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Str("pdf_url", pdfURL).Msg("WebSocket extraction requested")

	emit := func(ev pdfpages.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to encode event")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug().Err(err).Msg("WebSocket write failed")
			cancel()
		}
	}

	res, err := s.extractor.Stream(ctx, pdfURL, emit)
	if err != nil {
		logger.Warn().Err(err).Str("pdf_url", pdfURL).Msg("WebSocket extraction failed")
	} else {
		logger.Info().Str("handle", res.Handle()).Int("images", res.Len()).Msg("WebSocket extraction complete")
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// handleDownloadZip returns every page image in a ZIP archive
func (s *Server) handleDownloadZip(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, "pdf-images.zip", "application/zip", func(res *pdfpages.Result) ([]byte, error) {
		var buf bytes.Buffer
		if err := res.WriteZip(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

// handleDownloadPDF returns a PDF rebuilt from the page images
func (s *Server) handleDownloadPDF(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, "pdf-images.pdf", "application/pdf", (*pdfpages.Result).PDF)
}

// download extracts (or reuses the cached result) and writes the
// assembled artifact as an attachment.
func (s *Server) download(w http.ResponseWriter, r *http.Request, filename, contentType string, build func(*pdfpages.Result) ([]byte, error)) {
	logger := requestLogger(r, s.logger)

	pdfURL := pdfURLFromQuery(r)
	if pdfURL == "" {
		http.Error(w, missingURLMessage, http.StatusBadRequest)
		return
	}

	logger.Info().Str("pdf_url", pdfURL).Str("file", filename).Msg("Download requested")

	res, err := s.extractor.Extract(r.Context(), pdfURL)
	if err != nil {
		logger.Error().Err(err).Str("pdf_url", pdfURL).Msg("Download extraction failed")
		http.Error(w, "Error extracting images: "+err.Error(), statusFor(err))
		return
	}

	data, err := build(res)
	if err != nil {
		logger.Error().Err(err).Str("file", filename).Msg("Failed to assemble download")
		http.Error(w, "Error generating "+filename+": "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	logger.Info().
		Str("file", filename).
		Int("images", res.Len()).
		Int("bytes", len(data)).
		Bool("cached", res.Cached()).
		Msg("Download complete")
}

// handleHealth reports liveness and the running version
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.GetFullVersion(),
	})
}
