package events

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-market/internal/goroutine"
	"github.com/ignatzorin/freelance-market/internal/logger"
	"github.com/ignatzorin/freelance-market/internal/metrics"
)

const deliveryTimeout = 5 * time.Second

// Sink получатель событий: вебсокеты, redis, уведомления в базе.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

type sinkFunc struct {
	name string
	fn   func(ctx context.Context, event Event) error
}

func (s sinkFunc) Name() string { return s.name }

func (s sinkFunc) Deliver(ctx context.Context, event Event) error { return s.fn(ctx, event) }

// SinkFunc оборачивает функцию в Sink.
func SinkFunc(name string, fn func(ctx context.Context, event Event) error) Sink {
	return sinkFunc{name: name, fn: fn}
}

// Dispatcher раздаёт события всем sink'ам в фоне. Доставка не гарантируется:
// ошибки sink'а логируются и не влияют на остальные sink'и и на вызывающего.
type Dispatcher struct {
	mu     sync.RWMutex
	sinks  []Sink
	runner *goroutine.RecoveryHandler
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:  sinks,
		runner: goroutine.NewRecoveryHandler(logger.Log),
	}
}

// AddSink подключает ещё один sink.
func (d *Dispatcher) AddSink(sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, sink)
}

// Publish отправляет события и сразу возвращает управление.
func (d *Dispatcher) Publish(ctx context.Context, events ...Event) {
	d.mu.RLock()
	sinks := append([]Sink(nil), d.sinks...)
	d.mu.RUnlock()

	base := context.WithoutCancel(ctx)
	for _, event := range events {
		for _, sink := range sinks {
			d.runner.SafeGo(func() {
				ctx, cancel := context.WithTimeout(base, deliveryTimeout)
				defer cancel()
				d.deliver(ctx, sink, event)
			})
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, event Event) {
	if err := sink.Deliver(ctx, event); err != nil {
		metrics.EventsDelivered.WithLabelValues(string(event.Type), sink.Name(), "error").Inc()
		logger.Log.WithFields(logrus.Fields{
			"event": event.Type,
			"sink":  sink.Name(),
		}).WithError(err).Warn("events: не удалось доставить событие")
		return
	}
	metrics.EventsDelivered.WithLabelValues(string(event.Type), sink.Name(), "ok").Inc()
}

// Wait дожидается доставки уже опубликованных событий.
func (d *Dispatcher) Wait() {
	d.runner.Wait()
}
