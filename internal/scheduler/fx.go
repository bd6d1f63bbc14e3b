package scheduler

import (
	"context"

	"go.uber.org/fx"

	"github.com/caiohomem/assistente-sub001/internal/config"
)

var Module = fx.Module("scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(runScheduler),
)

func runScheduler(lc fx.Lifecycle, cfg config.Config, scheduler *Scheduler) {
	if !cfg.Scheduler.Enabled {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go scheduler.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
