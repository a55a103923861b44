package goroutine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestSafeGoRecoversPanic(t *testing.T) {
	log := &recordingLogger{}
	rh := NewRecoveryHandler(log)

	rh.SafeGo(func() { panic("boom") })
	rh.Wait()

	assert.Len(t, log.lines, 1)
	assert.Contains(t, log.lines[0], "boom")
}

func TestSafeGoWithContextRuns(t *testing.T) {
	rh := NewRecoveryHandler(&recordingLogger{})
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	var got any
	rh.SafeGoWithContext(ctx, func(ctx context.Context) { got = ctx.Value(key{}) })
	rh.Wait()

	assert.Equal(t, "v", got)
}
