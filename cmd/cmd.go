package cmd

import (
	"context"
	"net/http"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosimple/slug"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dpp/homer/internal/pkg/bindings"
	"github.com/dpp/homer/internal/pkg/buttons"
	"github.com/dpp/homer/internal/pkg/config"
	"github.com/dpp/homer/internal/pkg/hass"
	"github.com/dpp/homer/internal/pkg/model"
	"github.com/dpp/homer/internal/pkg/netwatch"
	"github.com/dpp/homer/internal/pkg/orchestrator"
	"github.com/dpp/homer/internal/pkg/readiness"
	"github.com/dpp/homer/internal/pkg/renderer"
	"github.com/dpp/homer/internal/pkg/server"
	"github.com/dpp/homer/internal/pkg/session"
	"github.com/dpp/homer/internal/pkg/timesync"
)

func HomerCommand(ctx *cli.Context) error {
	cfg, err := buildConfig(ctx)
	if err != nil {
		return err
	}
	return run(ctx.Context, cfg)
}

// buildConfig layers cli flags over the environment-derived configuration.
func buildConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if ctx.IsSet("ha-host") {
		cfg.HA.Host = ctx.String("ha-host")
	}
	if ctx.IsSet("ha-token") {
		cfg.HA.Token = ctx.String("ha-token")
	}
	if ctx.IsSet("ha-ssl") {
		cfg.HA.Ssl = ctx.Bool("ha-ssl")
	}
	if ctx.IsSet("mqtt-host") {
		cfg.MQTT.Broker = ctx.String("mqtt-host")
	}
	if ctx.IsSet("bindings-dir") {
		cfg.BindingsDir = ctx.String("bindings-dir")
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logCfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logCfg.Level = level
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.HA.CheckToken(logger)
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	flags := readiness.New()

	buttonCh := make(chan model.ButtonID, 5)
	eventCh := make(chan *model.EventFrame, 60)
	drawCh := make(chan model.DrawCmd, 16)
	cmdCh := make(chan session.Command, 16)
	refreshCh := make(chan struct{}, 1)

	sink, err := newSink(cfg)
	if err != nil {
		return err
	}

	// clear the screen before anything renders
	drawCh <- model.Erase(model.ColorWhite)

	decoder := buttons.New(buttons.SysfsReader{Path: cfg.ADCPath}, buttonCh)
	manager := session.New(&cfg.HA, flags, cmdCh, eventCh)
	orch := orchestrator.New(flags, bindings.NewSource(cfg.BindingsDir), hass.New(&cfg.HA), loc, orchestrator.Channels{
		Buttons: buttonCh,
		Events:  eventCh,
		Refresh: refreshCh,
		Draw:    drawCh,
		Session: cmdCh,
	})

	c := cron.New()
	if _, err := c.AddFunc(cfg.RefreshSchedule, func() {
		select {
		case refreshCh <- struct{}{}:
		default:
		}
	}); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return renderer.NewLoop(sink, drawCh).Run(ctx)
	})
	eg.Go(func() error {
		return decoder.Run(ctx)
	})
	eg.Go(func() error {
		return manager.Run(ctx)
	})
	eg.Go(func() error {
		return netwatch.New(cfg.HA.Host, flags, drawCh).Run(ctx)
	})
	eg.Go(func() error {
		return timesync.New(timesync.SystemClock{}, flags).Run(ctx)
	})
	eg.Go(func() error {
		return orch.Run(ctx)
	})
	eg.Go(func() error {
		return serveDiagnostics(ctx, cfg.ListenAddr, flags, manager)
	})

	return eg.Wait()
}

func newSink(cfg *config.Config) (renderer.Sink, error) {
	if cfg.MQTT.Broker == "" {
		return renderer.NewLogSink(), nil
	}
	opts := paho_mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetUsername(cfg.MQTT.Username).
		SetPassword(cfg.MQTT.Password).
		SetClientID("homer-" + slug.Make(cfg.DeviceName))
	sink := renderer.NewMQTTSink(paho_mqtt.NewClient(opts), cfg.DeviceName)
	if err := sink.Connect(); err != nil {
		return nil, err
	}
	return sink, nil
}

func serveDiagnostics(ctx context.Context, addr string, flags *readiness.Flags, manager *session.Manager) error {
	srv := &http.Server{
		Handler: server.New(flags, func() string {
			return manager.State().String()
		}),
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
