package di

import (
	"io"
	"net/http"

	"github.com/muratoffalex/discordctl/internal/commands"
	"github.com/muratoffalex/discordctl/internal/config"
	"github.com/muratoffalex/discordctl/internal/core"
	"github.com/muratoffalex/discordctl/internal/discord"
	"github.com/muratoffalex/discordctl/internal/dispatch"
	"github.com/muratoffalex/discordctl/internal/journal"
	"github.com/muratoffalex/discordctl/internal/locale"
	"github.com/muratoffalex/discordctl/internal/logger"
	"github.com/muratoffalex/discordctl/internal/metrics"
	"github.com/muratoffalex/discordctl/internal/network"
	"github.com/muratoffalex/discordctl/internal/throttle"
)

type Container struct {
	Logger     logger.Logger
	LogCloser  io.Closer
	Cfg        *config.Config
	HttpClient *http.Client
	Localizer  *locale.Localizer
	Throttle   *throttle.Throttle
	Executor   *discord.Executor
	Dispatcher *dispatch.Dispatcher
	Journal    *journal.Journal
	Metrics    *metrics.Metrics
	Bot        *core.Bot
	Router     *commands.Router
}

// NewContainer wires every component. Outcomes are written as JSON lines to
// out.
func NewContainer(cfg *config.Config, out io.Writer) (*Container, error) {
	l, closer := logger.NewLogrusLogger(cfg.Log())
	c := &Container{
		Logger:    l,
		LogCloser: closer,
		Cfg:       cfg,
	}

	localizer, err := locale.New(cfg.Global().InterfaceLanguage)
	if err != nil {
		l.WithError(err).Error("Error create localizer")
		return nil, err
	}
	c.Localizer = localizer

	c.HttpClient, err = network.NewClient(network.NewClientConfig(cfg.HTTP()), l)
	if err != nil {
		l.WithError(err).Error("Failed to configure HTTP client")
		return nil, err
	}

	var observers []dispatch.Observer
	if jc := cfg.Journal(); jc.Enabled {
		c.Journal, err = journal.Open(jc, l)
		if err != nil {
			l.WithError(err).Error("Failed to open journal")
			return nil, err
		}
		observers = append(observers, c.Journal)
		l.Info("Journal opened")
	}

	c.Metrics = metrics.New(func() int64 {
		if c.Dispatcher == nil {
			return 0
		}
		return c.Dispatcher.InFlight()
	})
	observers = append(observers, c.Metrics)

	dc := cfg.Dispatcher()
	c.Throttle = throttle.New()
	c.Dispatcher = dispatch.New(
		c.Throttle,
		commands.NewLineWriter(out, localizer, l),
		dispatch.Options{
			Workers:        dc.Workers,
			QueueSize:      dc.QueueSize,
			Rate:           dc.Rate,
			Burst:          dc.Burst,
			FailureMessage: core.RejectionMessage(localizer),
		},
		l,
		observers...,
	)

	dcfg := cfg.Discord()
	c.Executor = discord.NewExecutor(
		c.HttpClient,
		discord.StaticToken(dcfg.Token),
		l,
		discord.WithBaseURL(dcfg.BaseURL),
		discord.WithUserAgent(dcfg.UserAgent),
	)

	c.Bot = core.NewBot(c.Dispatcher, c.Executor, localizer, l)
	c.Router = commands.NewRouter(c.Dispatcher, localizer, cfg.CommandCooldown, l)
	c.Router.Register(commands.BotCommands(c.Bot)...)

	l.WithFields(logger.Fields{
		"workers":    dc.Workers,
		"queue_size": dc.QueueSize,
		"rate":       dc.Rate,
		"language":   localizer.Language(),
	}).Info("DI Container created")

	return c, nil
}

// Close drains the dispatcher, then releases the journal and the log file.
func (c *Container) Close() {
	c.Dispatcher.Close()
	if c.Journal != nil {
		if err := c.Journal.Close(); err != nil {
			c.Logger.WithError(err).Error("Failed to close journal")
		}
	}
	c.LogCloser.Close()
}
