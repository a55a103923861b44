package service

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/logger"
	"github.com/ignatzorin/freelance-market/internal/metrics"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/storage"
)

// Actor аутентифицированный пользователь, от имени которого выполняется операция.
type Actor struct {
	ID     uuid.UUID
	Role   valueobject.Role
	Banned bool
}

// ActorFromUser собирает Actor из загруженного пользователя.
func ActorFromUser(user *models.User) Actor {
	return Actor{ID: user.ID, Role: user.Role, Banned: user.Banned}
}

func (a Actor) IsAdmin() bool {
	return a.Role == valueobject.RoleAdmin
}

func (a Actor) IsFreelancer() bool {
	return a.Role == valueobject.RoleFreelancer
}

// ensureActive отсекает анонимов и заблокированных пользователей.
func (a Actor) ensureActive() error {
	if a.ID == uuid.Nil {
		return apperror.ErrUnauthorized
	}
	if a.Banned {
		return apperror.ErrUserBanned
	}
	return nil
}

// Transactor выполняет fn в одной транзакции; вложенные вызовы переиспользуют внешнюю.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher рассылает события после коммита.
type EventPublisher interface {
	Publish(ctx context.Context, events ...events.Event)
}

// FileStore хранилище вложений и результатов работ.
type FileStore interface {
	Save(ctx context.Context, orderID uuid.UUID, originalName string, r io.Reader) (*storage.StoredFile, error)
	Delete(ctx context.Context, relativePath string) error
}

// FileUpload файл из multipart-запроса.
type FileUpload struct {
	Name    string
	Content io.Reader
}

type effectsKey struct{}

// effects побочные эффекты транзакции: события и метрики уходят только после коммита,
// а сохранённые файлы удаляются при откате.
type effects struct {
	events      []events.Event
	transitions [][2]valueobject.OrderStatus
	bidStatuses []valueobject.BidStatus
	ledgerKinds []string
	storedFiles []string
}

func (fx *effects) emit(e ...events.Event) {
	fx.events = append(fx.events, e...)
}

func effectsFrom(ctx context.Context) *effects {
	fx, _ := ctx.Value(effectsKey{}).(*effects)
	return fx
}

// runner общая обвязка сервисов, меняющих состояние.
type runner struct {
	tx        Transactor
	publisher EventPublisher
	files     FileStore
}

// inTx выполняет fn атомарно. Во вложенном вызове эффекты копятся во внешнем runner.
func (r runner) inTx(ctx context.Context, fn func(ctx context.Context, fx *effects) error) error {
	if fx := effectsFrom(ctx); fx != nil {
		return r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return fn(ctx, fx)
		})
	}

	fx := &effects{}
	err := r.tx.WithinTransaction(context.WithValue(ctx, effectsKey{}, fx), func(ctx context.Context) error {
		return fn(ctx, fx)
	})
	if err != nil {
		r.discardFiles(ctx, fx.storedFiles)
		return err
	}

	for _, t := range fx.transitions {
		metrics.OrderTransitions.WithLabelValues(string(t[0]), string(t[1])).Inc()
	}
	for _, status := range fx.bidStatuses {
		metrics.BidStatusChanges.WithLabelValues(string(status)).Inc()
	}
	for _, kind := range fx.ledgerKinds {
		metrics.LedgerOperations.WithLabelValues(kind).Inc()
	}
	if r.publisher != nil && len(fx.events) > 0 {
		r.publisher.Publish(ctx, fx.events...)
	}
	return nil
}

func (r runner) discardFiles(ctx context.Context, paths []string) {
	if r.files == nil {
		return
	}
	for _, path := range paths {
		if err := r.files.Delete(ctx, path); err != nil {
			logger.Log.WithError(err).WithField("path", path).Warn("не удалось удалить файл после отката")
		}
	}
}

// storeFiles сохраняет загрузки и регистрирует их для удаления при откате.
func (r runner) storeFiles(ctx context.Context, fx *effects, order *models.Order, uploaderID uuid.UUID, kind string, uploads []FileUpload) ([]models.OrderFile, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if r.files == nil {
		return nil, apperror.New(apperror.ErrCodeInternal, "хранилище файлов не настроено")
	}

	files := make([]models.OrderFile, 0, len(uploads))
	for _, upload := range uploads {
		stored, err := r.files.Save(ctx, order.ID, upload.Name, upload.Content)
		if err != nil {
			return nil, err
		}
		fx.storedFiles = append(fx.storedFiles, stored.Path)
		files = append(files, models.OrderFile{
			ID:         uuid.New(),
			OrderID:    order.ID,
			UploaderID: uploaderID,
			Kind:       kind,
			Name:       stored.Name,
			Path:       stored.Path,
			URL:        stored.URL,
			Size:       stored.Size,
			MimeType:   stored.MimeType,
		})
	}
	return files, nil
}

// normalizePage приводит пагинацию к допустимым значениям.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
