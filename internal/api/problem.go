package api

import (
	"encoding/json"
	"net/http"

	"github.com/as/hlsfilter/internal/log"
)

// HeaderRequestID carries the request ID in requests and responses
const HeaderRequestID = "X-Request-ID"

// Problem codes
const (
	CodeBadQuery    = "BAD_QUERY"
	CodeBadPlaylist = "BAD_PLAYLIST"
	CodeRange       = "RANGE"
	CodeTooLarge    = "BODY_TOO_LARGE"
	CodeUnavailable = "UNAVAILABLE"
	CodeRateLimited = "RATE_LIMITED"
	CodeInternal    = "INTERNAL"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	p := Problem{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Code:      code,
		Detail:    detail,
		Instance:  r.URL.EscapedPath(),
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.FromContext(r.Context()).Error().Err(err).Int("status", status).Msg("failed to encode problem response")
	}
}
