package server

import (
	"encoding/json"
	"net/http"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound     = "https://artiscatalog.dev/problems/not-found"
	ProblemTypeBadRequest   = "https://artiscatalog.dev/problems/bad-request"
	ProblemTypeInternal     = "https://artiscatalog.dev/problems/internal-error"
	ProblemTypeUnauthorized = "https://artiscatalog.dev/problems/unauthorized"
	ProblemTypeRateLimited  = "https://artiscatalog.dev/problems/rate-limited"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, typ string, status int, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     typ,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	writeStatus(w, ProblemTypeNotFound, http.StatusNotFound, detail, instance)
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	writeStatus(w, ProblemTypeBadRequest, http.StatusBadRequest, detail, instance)
}

// Unauthorized writes a 401 problem response.
func Unauthorized(w http.ResponseWriter, detail, instance string) {
	writeStatus(w, ProblemTypeUnauthorized, http.StatusUnauthorized, detail, instance)
}

// InternalError writes a 500 problem response. detail goes to the client, so
// never pass raw error text from storage.
func InternalError(w http.ResponseWriter, detail, instance string) {
	writeStatus(w, ProblemTypeInternal, http.StatusInternalServerError, detail, instance)
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	writeStatus(w, ProblemTypeRateLimited, http.StatusTooManyRequests, detail, instance)
}
