package testutil

import (
	"bytes"
	"context"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/storage"
)

// RecordingPublisher запоминает опубликованные события.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingPublisher) Publish(_ context.Context, evts ...events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
}

func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// OfType события указанного типа.
func (p *RecordingPublisher) OfType(t events.Type) []events.Event {
	var out []events.Event
	for _, e := range p.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// MemFileStore файловое хранилище в памяти.
type MemFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemFileStore() *MemFileStore {
	return &MemFileStore{files: map[string][]byte{}}
}

func (s *MemFileStore) Save(_ context.Context, orderID uuid.UUID, originalName string, r io.Reader) (*storage.StoredFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	mime, err := storage.DetectType(data)
	if err != nil {
		return nil, err
	}
	rel := path.Join(orderID.String(), uuid.NewString()+"-"+originalName)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[rel] = data
	return &storage.StoredFile{
		Name:     originalName,
		Path:     rel,
		URL:      "/media/" + rel,
		Size:     int64(len(data)),
		MimeType: mime,
	}, nil
}

func (s *MemFileStore) Delete(_ context.Context, relativePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, relativePath)
	return nil
}

// Count число хранимых файлов.
func (s *MemFileStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// PDF минимальное содержимое, которое распознаётся как PDF.
func PDF() io.Reader {
	return bytes.NewReader(append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 64)...))
}
