package repository

import (
	"database/sql"
	"fmt"
)

// requireRowAffected converts a zero-row mutation into sql.ErrNoRows so the
// service layer can surface NotFound uniformly.
func requireRowAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", entity, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
