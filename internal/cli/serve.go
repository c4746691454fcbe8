package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"aaronromeo.com/mailsift/internal/api"
	"aaronromeo.com/mailsift/internal/worker"
	"aaronromeo.com/mailsift/pkg/utils"
	"github.com/urfave/cli/v2"
)

func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve searches, exports and summaries as JSON over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default from config)"},
		},
		Action: func(c *cli.Context) error {
			return a.withEnv(c, func(env *environment) error {
				return a.serve(c, env)
			})
		},
	}
}

func (a *App) serve(c *cli.Context, env *environment) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := env.cfg.Export.Options()
	if err != nil {
		return err
	}
	sink, err := env.sink()
	if err != nil {
		return err
	}

	// Callbacks run on their own goroutine, outside the worker.
	d := worker.NewLoopDispatcher()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go func() { _ = d.Run(loopCtx) }()

	failed := make(chan error, 1)
	w, err := worker.New(
		worker.WithConnector(env.connector),
		worker.WithDispatcher(d),
		worker.WithLogger(env.logger),
		worker.WithEngineOptions(env.engineOptions()...),
		worker.WithSink(sink),
		worker.WithOnFailed(func(err error) {
			failed <- err
			stop()
		}),
	)
	if err != nil {
		return err
	}
	go func() { _ = w.Run(ctx) }()
	defer func() {
		w.Close()
		<-w.Done()
	}()

	h, err := api.NewHandler(
		api.WithWorker(w),
		api.WithLogger(env.logger),
		api.WithExportDefaults(opts),
	)
	if err != nil {
		return err
	}
	app := api.NewApp(h)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithContext(context.Background()); err != nil {
			env.logger.Error("failed to shut down server", slog.Any("error", utils.WrapError(err)))
		}
	}()

	addr := env.cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}
	env.logger.Info("serving", slog.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		return err
	}

	select {
	case err := <-failed:
		return err
	default:
		return nil
	}
}
