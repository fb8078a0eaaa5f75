package srv

import (
	"context"
	"time"

	"github.com/sandevgo/replydesk/pkg/log"
)

// DefaultShutdownTimeout bounds how long a single service may take to stop.
const DefaultShutdownTimeout = 10 * time.Second

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

func StartServices(ctx context.Context, services []Service) {
	logger := log.FromCtx(ctx)
	for _, service := range services {
		go func(service Service) {
			if err := service.Start(ctx); err != nil {
				logger.Fatal().Err(err).Msgf("%T failed to start", service)
			}
		}(service)
	}
}

// ShutdownServices blocks until ctx is cancelled, then stops services in reverse
// start order. Each service gets its own deadline detached from the cancelled ctx.
func ShutdownServices(ctx context.Context, services []Service) {
	<-ctx.Done()
	base := context.WithoutCancel(ctx)
	for i := len(services) - 1; i >= 0; i-- {
		service := services[i]
		sctx, cancel := context.WithTimeout(base, DefaultShutdownTimeout)
		if err := service.Shutdown(sctx); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msgf("%T failed to shutdown", service)
		}
		cancel()
	}
}
