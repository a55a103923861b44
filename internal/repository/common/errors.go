package common

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// Общие ошибки для всех репозиториев
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// MapError переводит ошибки драйвера в общие ошибки репозиториев.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return errors.Join(ErrAlreadyExists, err)
		case pqForeignKeyViolation, pqCheckViolation:
			return errors.Join(ErrInvalidInput, err)
		}
	}
	return err
}
