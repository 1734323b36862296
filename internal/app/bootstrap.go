package app

import (
	"context"
	"errors"

	"github.com/khatmdev/quadramall-promo/internal/config"
	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/monitor"
	"github.com/khatmdev/quadramall-promo/internal/provider"
	"github.com/khatmdev/quadramall-promo/internal/router"
	"github.com/khatmdev/quadramall-promo/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := monitor.InitSentry(cfg.Sentry); err != nil {
		logger.Warnw("sentry_init_failed", "error", err)
	}

	container := provider.NewContainer(cfg)
	services, err := buildServices(cfg, mode, container)
	if err != nil {
		container.Close()
		return nil, err
	}
	runner := NewRunner(services...)
	runner.AddCloser(container.Close)
	return runner, nil
}

func buildServices(cfg *config.Config, mode string, container *provider.Container) ([]Service, error) {
	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	if mode == ModeAll || mode == ModeWorker {
		// 队列消费者
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		}

		// 定时清理
		if cfg.Sweeper.Enabled {
			scheduler, err := worker.NewScheduler(cfg.Sweeper, worker.SweepRunnerFunc(func(ctx context.Context, pass string) error {
				_, err := container.SweeperService.Run(ctx, pass)
				return err
			}))
			if err != nil {
				return nil, err
			}
			services = append(services, scheduler)
		}
	}

	// 如果没有服务被启动（例如模式错误或配置导致都没起），应该报错或至少打日志
	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return services, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	defer monitor.FlushSentry(opts.ShutdownTimeout)

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
