package errx

import (
	"database/sql"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// WrapDB maps SQL and gorm errors to a persistence AppError.
func WrapDB(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound) {
		return &AppError{Err: err, Kind: KindPersistence, Status: http.StatusNotFound, Message: NotFoundMessage}
	}

	return Persistence(err, DatabaseErrorMessage)
}
