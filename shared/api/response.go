// shared/api/response.go
package api

import (
	"encoding/json"
	"net/http"
)

// JSONErrorResponse defines a standard structure for API error responses.
type JSONErrorResponse struct {
	Message string   `json:"message"`
	Code    int      `json:"code,omitempty"`
	Reason  string   `json:"reason,omitempty"` // Machine-readable failure reason, e.g. "invalid email"
	Fields  []string `json:"fields,omitempty"` // Offending request fields
	Next    string   `json:"next,omitempty"`   // Where the client should send the user next
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response with the given status code and message.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteErrorResponse(w, status, JSONErrorResponse{Message: message})
}

// WriteErrorResponse writes resp, filling in the code from status.
func WriteErrorResponse(w http.ResponseWriter, status int, resp JSONErrorResponse) {
	resp.Code = status
	if err := WriteJSON(w, status, resp); err != nil {
		// Headers are already out; the body is best effort.
		_, _ = w.Write([]byte(resp.Message))
	}
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message)
}

func WriteInternalServerError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
