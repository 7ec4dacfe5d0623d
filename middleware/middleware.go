// Package middleware intercepts inbound requests ahead of business
// handlers and rejects those the admission gate denies.
package middleware

import (
	"io"
	"net/http"

	"admission.ratelimiter/api"
)

// rejectionBody is the fixed payload returned on denial.
const rejectionBody = `{"error":"Rate limit exceeded","message":"Too many requests"}`

// AdmissionMiddleware wraps handlers with the gate's admission check.
type AdmissionMiddleware struct {
	gate *api.Gate
}

// NewAdmissionMiddleware creates an AdmissionMiddleware over gate.
func NewAdmissionMiddleware(gate *api.Gate) *AdmissionMiddleware {
	return &AdmissionMiddleware{gate: gate}
}

// Handle wraps an http.HandlerFunc. Denied requests receive a 429 with a
// JSON body and never reach next; admitted requests pass through unchanged.
func (m *AdmissionMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.gate.Admit(r) {
			writeRejection(w)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// Wrap is Handle for http.Handler chains.
func (m *AdmissionMiddleware) Wrap(next http.Handler) http.Handler {
	return m.Handle(next.ServeHTTP)
}

func writeRejection(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	io.WriteString(w, rejectionBody)
}
