package goroutine

import (
	"context"
	"runtime/debug"
	"sync"
)

// Logger интерфейс для логирования ошибок. *logrus.Logger ему удовлетворяет.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler запускает горутины с обработкой panic и умеет дождаться их завершения.
type RecoveryHandler struct {
	logger Logger
	wg     sync.WaitGroup
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				rh.logger.Errorf("panic in goroutine: %v\nstack trace:\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	rh.SafeGo(func() { fn(ctx) })
}

// Wait ждёт завершения всех запущенных горутин. Используется при остановке сервера.
func (rh *RecoveryHandler) Wait() {
	rh.wg.Wait()
}
