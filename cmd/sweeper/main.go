package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/app"
	"github.com/khatmdev/quadramall-promo/internal/config"
	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/provider"
	"github.com/khatmdev/quadramall-promo/internal/service"

	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "promo-sweeper",
		Usage: "一次性执行优惠码/秒杀清理任务",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "执行清理阶段（deactivate / expiring，缺省时依次执行）",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pass", Aliases: []string{"p"}, Usage: "清理阶段"},
				},
				Action: runSweep,
			},
			{
				Name:  "list-expiring",
				Usage: "列出即将到期的优惠码与秒杀",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "hours", Value: constants.DefaultExpiringWindowHours, Usage: "提醒窗口（小时）"},
				},
				Action: listExpiring,
			},
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		logger.Errorw("sweeper_cli_failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func bootstrap(ctx *cli.Context) (*provider.Container, error) {
	cfg := config.LoadFile(ctx.String("config"))
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	if err := app.InitDatabase(cfg); err != nil {
		return nil, err
	}
	return provider.NewContainer(cfg), nil
}

func runSweep(ctx *cli.Context) error {
	container, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	passes := []string{constants.SweepPassDeactivate, constants.SweepPassExpiring}
	if pass := ctx.String("pass"); pass != "" {
		if !service.IsSweepPass(pass) {
			return fmt.Errorf("%w: %s", service.ErrSweepPassInvalid, pass)
		}
		passes = []string{pass}
	}

	runCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	for _, pass := range passes {
		report, err := container.SweeperService.Run(runCtx, pass)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "pass=%s skipped=%v deactivated=%d discount_codes=%d flash_sales=%d notified=%d failed=%d\n",
			report.Pass, report.Skipped, report.Deactivated, report.DiscountCodes, report.FlashSales, report.Notified, report.Failed)
	}
	return nil
}

func listExpiring(ctx *cli.Context) error {
	container, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	window := time.Duration(ctx.Int("hours")) * time.Hour
	queryCtx, cancel := context.WithTimeout(ctx.Context, 30*time.Second)
	defer cancel()

	codes, err := container.SweeperService.ListExpiringSoon(queryCtx, window)
	if err != nil {
		return err
	}
	sales, err := container.SweeperService.ListFlashSalesEndingSoon(queryCtx, window)
	if err != nil {
		return err
	}
	for _, code := range codes {
		fmt.Fprintf(ctx.App.Writer, "discount_code id=%d store=%d code=%s remaining=%d end=%s\n",
			code.ID, code.StoreID, code.Code, code.Remaining(), code.EndDate.UTC().Format(time.RFC3339))
	}
	for _, sale := range sales {
		fmt.Fprintf(ctx.App.Writer, "flash_sale id=%d product=%d remaining=%d end=%s\n",
			sale.ID, sale.ProductID, sale.Remaining(), sale.EndTime.UTC().Format(time.RFC3339))
	}
	return nil
}
