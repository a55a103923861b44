package repository

import (
	"errors"

	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

var (
	ErrNotFound          = common.ErrNotFound
	ErrAlreadyExists     = common.ErrAlreadyExists
	ErrInvalidInput      = common.ErrInvalidInput
	ErrInsufficientFunds = errors.New("insufficient funds")
)
