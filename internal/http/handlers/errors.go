package handlers

import (
	"errors"
	"net/http"

	"dinehall-pos-service/internal/kot"
	"dinehall-pos-service/pkg/response"

	"github.com/jackc/pgx/v5/pgconn"
)

func respondValidationError(w http.ResponseWriter, message string) {
	response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

// respondNotFound covers both a genuinely missing row and a row owned by
// another restaurant; callers cannot tell the two apart.
func respondNotFound(w http.ResponseWriter, message string) {
	response.Error(w, http.StatusNotFound, "NOT_FOUND", message)
}

func respondInternalError(w http.ResponseWriter) {
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
}

func respondTerminalState(w http.ResponseWriter, message string) {
	response.Error(w, http.StatusConflict, "TERMINAL_STATE", message)
}

func respondSlotConflict(w http.ResponseWriter) {
	response.Error(w, http.StatusConflict, "SLOT_CONFLICT", "The table is already reserved for this time slot")
}

func respondTicketChanged(w http.ResponseWriter) {
	response.Error(w, http.StatusConflict, "CONFLICT", "Ticket status changed concurrently, reload and retry")
}

func writeTicketError(w http.ResponseWriter, err *kot.Error) {
	response.Error(w, err.StatusCode, string(err.Code), err.Message)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
