package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/serializer"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{entity.ErrNotFound, http.StatusNotFound, "not_found"},
	{entity.ErrInvalidAction, http.StatusUnprocessableEntity, "invalid_action"},
	{entity.ErrInvalidAmount, http.StatusUnprocessableEntity, "invalid_amount"},
	{entity.ErrUnknownChoice, http.StatusUnprocessableEntity, "unknown_choice"},
	{entity.ErrInvalidGuardians, http.StatusUnprocessableEntity, "invalid_guardians"},
	{entity.ErrKindMismatch, http.StatusUnprocessableEntity, "kind_mismatch"},
	{entity.ErrAlreadyWagered, http.StatusConflict, "already_wagered"},
	{entity.ErrAlreadyRedeemed, http.StatusConflict, "already_redeemed"},
	{entity.ErrAlreadyClaimed, http.StatusConflict, "already_claimed"},
	{entity.ErrAlreadyResolved, http.StatusConflict, "already_resolved"},
	{entity.ErrExhausted, http.StatusConflict, "exhausted"},
	{entity.ErrExpired, http.StatusConflict, "expired"},
	{entity.ErrClosed, http.StatusConflict, "closed"},
	{entity.ErrDuplicate, http.StatusConflict, "duplicate"},
	{entity.ErrVersionConflict, http.StatusConflict, "version_conflict"},
	{entity.ErrNotGuardian, http.StatusForbidden, "not_guardian"},
	{entity.ErrNotPermitted, http.StatusForbidden, "not_permitted"},
	{serializer.ErrShuttingDown, http.StatusServiceUnavailable, "shutting_down"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "busy"},
}

// statusFor maps an engine error to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeErrorMessage(w, status, code, msg)
}

func writeErrorMessage(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
