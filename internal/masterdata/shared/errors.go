package shared

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/salonpos/salonpos/internal/platform/db"
	core "github.com/salonpos/salonpos/internal/shared"
)

// NotFound builds the not-found error of an entity.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, core.ErrNotFound)
}

// MapError translates driver errors of a masterdata write into the shared taxonomy.
func MapError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return NotFound(entity)
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%s already exists: %w", entity, core.ErrDuplicate)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%s is referenced by other records: %w", entity, core.ErrInvalidOperation)
	default:
		return fmt.Errorf("%s: %w", entity, err)
	}
}
