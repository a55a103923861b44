package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

const orderColumns = `o.id, o.client_id, o.freelancer_id, o.category_id, o.title, o.description,
	o.budget, o.funded_amount, o.status, o.deadline, o.created_at, o.updated_at`

// OrderRepository отвечает за заказы, их навыки и файлы.
type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create сохраняет новый заказ.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	query := `
		INSERT INTO orders (id, client_id, freelancer_id, category_id, title, description, budget, funded_amount, status, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	if err := common.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		order.ID, order.ClientID, order.FreelancerID, order.CategoryID, order.Title, order.Description,
		order.Budget, order.FundedAmount, order.Status, order.Deadline,
	).Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("order repository: create: %w", common.MapError(err))
	}
	return nil
}

// GetByID возвращает заказ без блокировки.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate читает заказ и блокирует строку до конца транзакции.
// Все изменения статуса заказа идут через эту блокировку.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *OrderRepository) get(ctx context.Context, id uuid.UUID, lock string) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1` + lock
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &order, query, id); err != nil {
		return nil, fmt.Errorf("order repository: get by id: %w", common.MapError(err))
	}
	return &order, nil
}

// Update сохраняет изменяемые поля заказа.
func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders
		SET freelancer_id = $2, budget = $3, funded_amount = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := common.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		order.ID, order.FreelancerID, order.Budget, order.FundedAmount, order.Status,
	).Scan(&order.UpdatedAt); err != nil {
		return fmt.Errorf("order repository: update: %w", common.MapError(err))
	}
	return nil
}

type orderListRow struct {
	models.Order
	ClientName   string              `db:"client_name"`
	ClientRole   valueobject.Role    `db:"client_role"`
	ClientRating decimal.NullDecimal `db:"client_rating"`
	Skills       pq.StringArray      `db:"skills"`
	BidsCount    int                 `db:"bids_count"`
}

// List возвращает страницу заказов по фильтру, новые сверху.
func (r *OrderRepository) List(ctx context.Context, filter models.OrderFilter) (*models.OrderList, error) {
	conn := common.Conn(ctx, r.db)

	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("o.status = $%d", filter.Status)
	}
	if filter.CategoryID != nil {
		add("o.category_id = $%d", *filter.CategoryID)
	}
	if filter.ClientID != nil {
		add("o.client_id = $%d", *filter.ClientID)
	}
	if filter.Skill != "" {
		add(`EXISTS (SELECT 1 FROM order_skills os JOIN skills s ON s.id = os.skill_id
			WHERE os.order_id = o.id AND s.name = $%d)`, filter.Skill)
	}
	if filter.Search != "" {
		add(`(o.title ILIKE $%[1]d ESCAPE '\' OR o.description ILIKE $%[1]d ESCAPE '\')`, common.ContainsPattern(filter.Search))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := sqlx.GetContext(ctx, conn, &total, `SELECT COUNT(*) FROM orders o`+whereSQL, args...); err != nil {
		return nil, fmt.Errorf("order repository: count: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `,
			u.name AS client_name, u.role AS client_role, u.rating AS client_rating,
			COALESCE((SELECT array_agg(s.name ORDER BY s.name) FROM order_skills os
				JOIN skills s ON s.id = os.skill_id WHERE os.order_id = o.id), '{}') AS skills,
			(SELECT COUNT(*) FROM bids b WHERE b.order_id = o.id) AS bids_count
		FROM orders o
		JOIN users u ON u.id = o.client_id` + whereSQL + fmt.Sprintf(`
		ORDER BY o.created_at DESC
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	var rows []orderListRow
	if err := sqlx.SelectContext(ctx, conn, &rows, query, append(args, filter.Limit, filter.Offset)...); err != nil {
		return nil, fmt.Errorf("order repository: list: %w", err)
	}

	result := &models.OrderList{
		Orders:  make([]models.OrderListItem, 0, len(rows)),
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: filter.Offset+len(rows) < total,
	}
	for _, row := range rows {
		result.Orders = append(result.Orders, models.OrderListItem{
			Order:     row.Order,
			Client:    models.PublicUser{ID: row.ClientID, Name: row.ClientName, Role: row.ClientRole, Rating: row.ClientRating},
			Skills:    []string(row.Skills),
			BidsCount: row.BidsCount,
		})
	}
	return result, nil
}

// SetSkills привязывает навыки к заказу.
func (r *OrderRepository) SetSkills(ctx context.Context, orderID uuid.UUID, skillIDs []uuid.UUID) error {
	inserter := common.NewBatchInserter(common.Conn(ctx, r.db),
		`INSERT INTO order_skills (order_id, skill_id)`, `ON CONFLICT DO NOTHING`, 2, 50)
	for _, id := range skillIDs {
		if err := inserter.Add(ctx, orderID, id); err != nil {
			return fmt.Errorf("order repository: set skills: %w", err)
		}
	}
	if err := inserter.Flush(ctx); err != nil {
		return fmt.Errorf("order repository: set skills: %w", common.MapError(err))
	}
	return nil
}

// Skills возвращает названия навыков заказа.
func (r *OrderRepository) Skills(ctx context.Context, orderID uuid.UUID) ([]string, error) {
	skills := make([]string, 0)
	if err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &skills, `
		SELECT s.name FROM order_skills os JOIN skills s ON s.id = os.skill_id
		WHERE os.order_id = $1 ORDER BY s.name
	`, orderID); err != nil {
		return nil, fmt.Errorf("order repository: skills: %w", err)
	}
	return skills, nil
}

// AddFiles сохраняет ссылки на файлы заказа.
func (r *OrderRepository) AddFiles(ctx context.Context, files []models.OrderFile) error {
	inserter := common.NewBatchInserter(common.Conn(ctx, r.db),
		`INSERT INTO order_files (id, order_id, uploader_id, kind, name, path, url, size, mime_type)`, "", 9, 50)
	for i := range files {
		f := &files[i]
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		if err := inserter.Add(ctx, f.ID, f.OrderID, f.UploaderID, f.Kind, f.Name, f.Path, f.URL, f.Size, f.MimeType); err != nil {
			return fmt.Errorf("order repository: add files: %w", err)
		}
	}
	if err := inserter.Flush(ctx); err != nil {
		return fmt.Errorf("order repository: add files: %w", common.MapError(err))
	}
	return nil
}

// Files возвращает файлы заказа в порядке загрузки.
func (r *OrderRepository) Files(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error) {
	files := make([]models.OrderFile, 0)
	if err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &files, `
		SELECT id, order_id, uploader_id, kind, name, path, url, size, mime_type, created_at
		FROM order_files WHERE order_id = $1 ORDER BY created_at
	`, orderID); err != nil {
		return nil, fmt.Errorf("order repository: files: %w", err)
	}
	return files, nil
}
