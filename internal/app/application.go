package app

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muratoffalex/discordctl/internal/app/di"
	"github.com/muratoffalex/discordctl/internal/config"
	"github.com/muratoffalex/discordctl/internal/logger"
)

const journalPurgeInterval = time.Hour

type Application struct {
	Logger logger.Logger
	cfg    *config.Config
	di     *di.Container
	in     io.Reader
	ctx    context.Context
	cancel context.CancelFunc
}

func New() (*Application, error) {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, os.Stdin, os.Stdout)
}

// NewWithConfig builds an application reading requests from in and writing
// outcomes to out. It stops on SIGINT or SIGTERM.
func NewWithConfig(cfg *config.Config, in io.Reader, out io.Writer) (*Application, error) {
	container, err := di.NewContainer(cfg, out)
	if err != nil {
		return nil, err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return &Application{
		Logger: container.Logger,
		cfg:    cfg,
		di:     container,
		in:     in,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start serves requests until the input ends or the process is signalled.
func (a *Application) Start() error {
	a.Logger.Info("Starting application")

	if a.di.Journal != nil {
		a.di.Journal.Start()
		a.StartJournalCleaner()
	}
	if mc := a.cfg.Metrics(); mc.Enabled() {
		go func() {
			if err := a.di.Metrics.Serve(a.ctx, mc.Listen, a.Logger); err != nil {
				a.Logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	err := a.di.Router.Serve(a.ctx, a.in)
	if err != nil && a.ctx.Err() != nil {
		a.Logger.Info("Shutdown requested")
		return nil
	}
	if err == nil {
		a.Logger.Info("Input closed")
	}
	return err
}

// Shutdown waits for queued invocations to deliver their outcomes and
// releases resources.
func (a *Application) Shutdown() {
	a.di.Close()
	a.cancel()
	a.Logger.Info("Application stopped")
}

func (a *Application) StartJournalCleaner() {
	days := a.cfg.Journal().RetentionDays
	if days <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(journalPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				if _, err := a.di.Journal.Purge(a.ctx, days); err != nil {
					a.Logger.WithError(err).Error("Failed to purge old outcomes")
				}
			}
		}
	}()
}
