package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kara-engine/kara/engine"
	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/quiz"
	"github.com/kara-engine/kara/validate"
)

const maxBodySize = 1 << 20

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Errors  []validate.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("write response: %s", err)
	}
}

// readJSON decodes the body into v and validates it. An empty body leaves v untouched.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorBody{
			Code:    engine.CodeInvalidArgument,
			Message: fmt.Sprintf("malformed body: %s", err),
		})
		return false
	}

	if fields, ok := s.validate.Struct(v); !ok {
		writeJSON(w, http.StatusBadRequest, ErrorBody{
			Code:    engine.CodeInvalidArgument,
			Message: "invalid body",
			Errors:  fields,
		})
		return false
	}
	return true
}

var statuses = map[string]int{
	engine.CodeInvalidArgument:   http.StatusBadRequest,
	engine.CodeModifiersConflict: http.StatusBadRequest,
	engine.CodeMediaNotFound:     http.StatusNotFound,
	engine.CodeTransport:         http.StatusBadGateway,
	engine.CodeNoInstance:        http.StatusServiceUnavailable,
	engine.CodeShuttingDown:      http.StatusServiceUnavailable,
	quiz.CodeInvalidSettings:     http.StatusBadRequest,
	quiz.CodeNoPlaylist:          http.StatusBadRequest,
	quiz.CodeGameAlreadyRunning:  http.StatusConflict,
	quiz.CodeGameNotRunning:      http.StatusConflict,
	quiz.CodeAnswerRejected:      http.StatusConflict,
}

// writeError maps coded errors to their status, anything else is internal.
func writeError(w http.ResponseWriter, err error) {
	code := engine.CodeOf(err)
	status, ok := statuses[code]
	if !ok {
		status = http.StatusInternalServerError
		code = "INTERNAL"
		log.Errorf("request failed: %s", err)
	}
	writeJSON(w, status, ErrorBody{Code: code, Message: err.Error()})
}

// reply writes the error of an operation, or ok.
func reply(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
