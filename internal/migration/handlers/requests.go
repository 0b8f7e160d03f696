package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// parsePagination reads the skip/limit query parameters, applying the
// defaults of 0 and 100. Bounds clamping happens in the service layer.
func parsePagination(r *http.Request) (int, int, error) {
	skip, limit := 0, 100
	if raw := r.URL.Query().Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, fmt.Errorf("invalid skip parameter")
		}
		skip = v
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return 0, 0, fmt.Errorf("invalid limit parameter")
		}
		limit = v
	}
	return skip, limit, nil
}

func pathID(r *http.Request) (int, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

// csvFormFile extracts the uploaded file from a multipart request and
// enforces the .csv extension.
func csvFormFile(r *http.Request) (multipart.File, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file is required")
	}
	if !strings.HasSuffix(header.Filename, ".csv") {
		file.Close()
		return nil, fmt.Errorf("File must be a CSV")
	}
	return file, nil
}
