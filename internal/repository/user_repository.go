package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

const userColumns = `id, email, name, password_hash, role, balance, rating, banned, created_at, updated_at`

// UserRepository отвечает за таблицу users, кроме баланса.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя с нулевым балансом.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	query := `
		INSERT INTO users (id, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING balance, created_at, updated_at
	`
	if err := common.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Role,
	).Scan(&user.Balance, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: create: %w", common.MapError(err))
	}
	return nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &user, query, id); err != nil {
		return nil, fmt.Errorf("user repository: get by id: %w", common.MapError(err))
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &user, query, email); err != nil {
		return nil, fmt.Errorf("user repository: get by email: %w", common.MapError(err))
	}
	return &user, nil
}

// List ищет пользователей по имени или email, при заданной роли только среди неё.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	conn := common.Conn(ctx, r.db)

	where := `(name ILIKE $1 ESCAPE '\' OR email ILIKE $1 ESCAPE '\')`
	args := []any{common.ContainsPattern(filter.Search)}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.ExcludeBanned {
		where += " AND NOT banned"
	}

	var total int
	if err := sqlx.GetContext(ctx, conn, &total, `SELECT COUNT(*) FROM users WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("user repository: count: %w", err)
	}

	users := make([]models.User, 0)
	query := fmt.Sprintf(`SELECT `+userColumns+` FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	if err := sqlx.SelectContext(ctx, conn, &users, query, append(args, filter.Limit, filter.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("user repository: list: %w", err)
	}
	return users, total, nil
}

// UpdateRole меняет роль пользователя.
func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role valueobject.Role) error {
	return r.exec(ctx, "update role", `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
}

// SetBanned блокирует или разблокирует пользователя.
func (r *UserRepository) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	return r.exec(ctx, "set banned", `UPDATE users SET banned = $2, updated_at = NOW() WHERE id = $1`, id, banned)
}

// UpdateRating сохраняет агрегированный рейтинг.
func (r *UserRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating decimal.NullDecimal) error {
	return r.exec(ctx, "update rating", `UPDATE users SET rating = $2, updated_at = NOW() WHERE id = $1`, id, rating)
}

// Delete удаляет пользователя. Заказы, отклики и отзывы удаляются каскадом.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "delete", `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepository) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := common.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("user repository: %s: %w", op, common.MapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user repository: %s: %w", op, ErrNotFound)
	}
	return nil
}
