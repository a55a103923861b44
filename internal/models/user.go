package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
)

// User описывает пользователя платформы вместе с балансом.
// Баланс меняется только операциями леджера.
type User struct {
	ID           uuid.UUID           `db:"id" json:"id"`
	Email        string              `db:"email" json:"email"`
	Name         string              `db:"name" json:"name"`
	PasswordHash string              `db:"password_hash" json:"-"`
	Role         valueobject.Role    `db:"role" json:"role"`
	Balance      decimal.Decimal     `db:"balance" json:"balance"`
	Rating       decimal.NullDecimal `db:"rating" json:"rating"`
	Banned       bool                `db:"banned" json:"banned"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}

// PublicUser то, что видят другие пользователи.
type PublicUser struct {
	ID     uuid.UUID           `db:"id" json:"id"`
	Name   string              `db:"name" json:"name"`
	Role   valueobject.Role    `db:"role" json:"role"`
	Rating decimal.NullDecimal `db:"rating" json:"rating"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Role: u.Role, Rating: u.Rating}
}

// UserProfile публичная карточка пользователя.
type UserProfile struct {
	PublicUser
	CompletedOrders int       `json:"completed_orders"`
	CreatedAt       time.Time `json:"created_at"`
}

// UserFilter параметры поиска пользователей в админке и в каталоге фрилансеров.
type UserFilter struct {
	Search        string
	Role          valueobject.Role
	ExcludeBanned bool
	Limit         int
	Offset        int
}
