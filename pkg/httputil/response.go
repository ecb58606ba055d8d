// Package httputil writes the JSON documents served next to the exposition
// text: the health document and error bodies.
package httputil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// ErrorBody is the JSON document written for failed requests.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON encodes v and writes it with status. The body is encoded before
// the header is sent, so an unencodable value yields a 500 instead of a
// truncated response. A nil v writes no body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(ErrorBody{Error: "encode_failed", Message: err.Error()})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// WriteError writes an ErrorBody with status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Error: code, Message: message})
}

// WriteMethodNotAllowed writes a 405 listing the allowed methods in the
// Allow header and the body.
func WriteMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	list := strings.Join(allowed, ", ")
	w.Header().Set("Allow", list)
	WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "allowed methods: "+list)
}
