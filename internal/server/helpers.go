package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	pdfpages "github.com/porticus-lab/go-pdf-pages"
)

const missingURLMessage = "No PDF URL provided."

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response in the {"error": msg} shape the
// front end expects.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// statusFor maps extraction errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pdfpages.ErrInvalidHandle):
		return http.StatusBadRequest
	case errors.Is(err, pdfpages.ErrNoImagesFound):
		return http.StatusNotFound
	case errors.Is(err, pdfpages.ErrIncompleteExtraction),
		errors.Is(err, pdfpages.ErrNavigation):
		return http.StatusBadGateway
	case errors.Is(err, pdfpages.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// pdfURLFromBody reads pdfUrl from a JSON or form encoded body.
func pdfURLFromBody(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			PDFURL string `json:"pdfUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", err
		}
		return strings.TrimSpace(body.PDFURL), nil
	}
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return strings.TrimSpace(r.FormValue("pdfUrl")), nil
}

func pdfURLFromQuery(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("pdfUrl"))
}
