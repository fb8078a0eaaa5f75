package srv

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) add(name string) func() error {
	return func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.order = append(r.order, name)
		return nil
	}
}

func TestShutdownServices_ReverseOrder(t *testing.T) {
	rec := &recorder{}
	services := []Service{
		NewCleanup(rec.add("db")),
		NewCleanup(rec.add("http")),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ShutdownServices(ctx, services)

	assert.Equal(t, []string{"http", "db"}, rec.order)
}

func TestCleanup_NilFunc(t *testing.T) {
	s := NewCleanup(nil)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Shutdown(context.Background()))
}
