package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// JSend envelope. Every JSON response the server emits uses one of the three
// shapes below:
//
//	{"status":"success","data":{...}}  - request succeeded
//	{"status":"fail","data":{...}}     - request was rejected; data says why
//	{"status":"error","message":"..."} - the server itself failed
type jsendEnvelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess emits a JSend success envelope around data.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, jsendEnvelope{Status: "success", Data: data})
}

// WriteFail emits a JSend fail envelope; data explains what the client got
// wrong, usually a field-to-message map.
func WriteFail(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, jsendEnvelope{Status: "fail", Data: data})
}

// WriteError emits a JSend error envelope for server-side faults.
func WriteError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, jsendEnvelope{Status: "error", Message: msg})
}

// DecodeJSON strictly decodes the request body into dst: unknown fields,
// oversized bodies, and trailing data are all rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
