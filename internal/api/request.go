package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// DecodeJSON decodes the request body into dst. On failure it writes the error
// response and returns false: 413 when the body exceeded the configured limit,
// 400 otherwise.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	Error(w, http.StatusBadRequest, "invalid request body")
	return false
}
