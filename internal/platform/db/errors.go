package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func asPgError(err error, target **pgconn.PgError) bool {
	if err == nil {
		return false
	}
	return errors.As(err, target)
}
