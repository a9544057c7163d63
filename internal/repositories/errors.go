package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup by id, slug or username matches no row
	ErrNotFound = errors.New("record not found")
	// ErrConstraintViolation is returned when the database rejects a write on a unique, check or foreign key constraint
	ErrConstraintViolation = errors.New("constraint violation")
)

// translate maps driver errors onto the package sentinels, keeping the original error in the chain
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		isConstraintMessage(err):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	return err
}

// isConstraintMessage covers drivers without an error translator for every constraint kind
// (sqlite reports CHECK failures only as text)
func isConstraintMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") ||
		strings.Contains(msg, "violates") && strings.Contains(msg, "constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "check constraint")
}
