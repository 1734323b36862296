package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/config"
	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/logger"

	"github.com/robfig/cron/v3"
)

// SweepRunner 执行一次清理
type SweepRunner interface {
	Run(ctx context.Context, pass string) error
}

// SweepRunnerFunc 函数适配
type SweepRunnerFunc func(ctx context.Context, pass string) error

// Run 执行清理
func (f SweepRunnerFunc) Run(ctx context.Context, pass string) error {
	return f(ctx, pass)
}

// Scheduler 定时清理服务
type Scheduler struct {
	name   string
	cron   *cron.Cron
	runner SweepRunner
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler 按配置注册停用与到期提醒两个定时任务
func NewScheduler(cfg config.SweeperConfig, runner SweepRunner) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("sweep runner is nil")
	}
	location := time.UTC
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, err
		}
		location = loc
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		name: "scheduler",
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(location),
			cron.WithChain(cron.Recover(cron.PrintfLogger(logger.StdLogger())), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
	}

	jobs := []struct {
		spec string
		pass string
	}{
		{cfg.DeactivateSpec, constants.SweepPassDeactivate},
		{cfg.ExpiringSpec, constants.SweepPassExpiring},
	}
	for _, job := range jobs {
		spec := strings.TrimSpace(job.spec)
		if spec == "" {
			continue
		}
		pass := job.pass
		if _, err := s.cron.AddFunc(spec, func() { s.runOnce(pass) }); err != nil {
			cancel()
			return nil, err
		}
		logger.Infow("scheduler_job_registered", "pass", pass, "spec", spec, "timezone", location.String())
	}
	return s, nil
}

// Name 服务名称
func (s *Scheduler) Name() string {
	if s == nil || s.name == "" {
		return "scheduler"
	}
	return s.name
}

// Start 启动定时器并阻塞到上下文结束
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return errors.New("scheduler not initialized")
	}
	s.cron.Start()
	select {
	case <-ctx.Done():
	case <-s.ctx.Done():
	}
	s.cron.Stop()
	return nil
}

// Stop 停止定时器，等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return nil
	}
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries 已注册任务数
func (s *Scheduler) Entries() int {
	if s == nil || s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

func (s *Scheduler) runOnce(pass string) {
	if err := s.runner.Run(s.ctx, pass); err != nil {
		logger.Warnw("scheduler_sweep_failed", "pass", pass, "error", err)
	}
}
