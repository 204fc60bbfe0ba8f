package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/gencare-scheduler/internal/persistence"
)

// requireAffected converts a zero-row write into persistence.ErrNotFound.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func isForeignKey(err error) bool {
	return errors.Is(err, persistence.ErrForeignKeyViolation)
}
