// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"quotewall/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrTokenNotConsumable is returned when the conditional consume matched no row: the token was
// used, cancelled or expired between validation and the write.
var ErrTokenNotConsumable = errors.New("collection token is not consumable")

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	// SQLite reports "UNIQUE constraint failed", PostgreSQL SQLSTATE 23505 as text through some drivers.
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound AppError and anything else to an internal one.
func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
