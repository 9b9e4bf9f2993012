package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/ticket-overlays/services"
)

type jsonResponse map[string]interface{}

// maxBodyBytes caps admin request bodies; icon uploads go through multipart instead.
const maxBodyBytes = 64 << 10

// readJSON decodes exactly one JSON value into dst and rejects unknown keys.
func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return describeDecodeError(err)
	}
	if dec.More() {
		return errors.New("request body must hold a single JSON object")
	}
	return nil
}

func describeDecodeError(err error) error {
	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		tooLargeErr *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return errors.New("request body is empty")
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("malformed JSON: unexpected end of body")
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return fmt.Errorf("field %q has the wrong type, expected %s", typeErr.Field, typeErr.Type)
		}
		return fmt.Errorf("wrong JSON type at offset %d", typeErr.Offset)
	case errors.As(err, &tooLargeErr):
		return fmt.Errorf("request body exceeds %d bytes", tooLargeErr.Limit)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return fmt.Errorf("unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(append(payload, '\n'))
	return err
}

// successResponse wraps data in the {"success": true, "data": ...} envelope.
func successResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := writeJSON(w, status, jsonResponse{"success": true, "data": data}); err != nil {
		slog.ErrorContext(r.Context(), "write response", slog.Any("error", err))
	}
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	if err := writeJSON(w, status, jsonResponse{"success": false, "error": message}); err != nil {
		slog.ErrorContext(r.Context(), "write error response", slog.Int("status", status), slog.Any("error", err))
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError, "internal error while resolving overlays")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

// serviceErrorStatus maps service sentinels whose message is safe to show to the client.
var serviceErrorStatus = []struct {
	target error
	status int
}{
	{services.ErrInvalidInput, http.StatusBadRequest},
	{services.ErrMarkupRuleNotFound, http.StatusNotFound},
	{services.ErrHospitalityNotFound, http.StatusNotFound},
	{services.ErrAssignmentNotFound, http.StatusNotFound},
	{services.ErrTicketMarkupNotFound, http.StatusNotFound},
	{services.ErrRuleConflict, http.StatusConflict},
	{services.ErrIconStorageDisabled, http.StatusServiceUnavailable},
	{services.ErrAuthenticationFailed, http.StatusUnauthorized},
	{services.ErrForbiddenOperation, http.StatusForbidden},
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	// Дубликат правила на одном уровне: это ошибка конфигурации, сообщение называет уровень и область.
	if errors.Is(err, services.ErrAmbiguousRule) {
		slog.ErrorContext(r.Context(), "overlay data integrity error", slog.String("path", r.URL.Path), slog.Any("error", err))
		errorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	for _, m := range serviceErrorStatus {
		if errors.Is(err, m.target) {
			errorResponse(w, r, m.status, err.Error())
			return
		}
	}
	serverErrorResponse(w, r, err)
}

func getIDFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s in URL path", param)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s in URL path: %q", param, idStr)
	}
	return id, nil
}

// splitList parses a comma separated query value, dropping blanks.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
