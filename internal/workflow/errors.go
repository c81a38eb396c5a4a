package workflow

import (
	"errors"

	"github.com/Spok95/metalqms/internal/infra/db"
)

var (
	ErrMaterialNotFound   = errors.New("material not found")
	ErrReceiptNotFound    = errors.New("receipt not found")
	ErrInspectionNotFound = errors.New("inspection not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRequest     = errors.New("invalid request")
	// ErrConflict — нарушение уникальности в хранилище без своего кода ошибки.
	ErrConflict = errors.New("unique constraint violation")
)

// IsConflict — запись с таким ключом уже есть.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || db.IsUniqueViolation(err)
}
