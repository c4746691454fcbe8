// Package cli implements the mailsift command line. Every command opens one
// worker session, queues its tasks and prints the result as JSON.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"aaronromeo.com/mailsift/internal/worker"
	"github.com/urfave/cli/v2"
)

type App struct {
	stdout    io.Writer
	stderr    io.Writer
	connector worker.Connector
	signals   chan os.Signal
}

type Option func(*App)

func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithConnector replaces the IMAP connection built from the environment.
func WithConnector(c worker.Connector) Option {
	return func(a *App) {
		a.connector = c
	}
}

// WithSignals replaces the interrupt notifications that cancel a search.
func WithSignals(ch chan os.Signal) Option {
	return func(a *App) {
		a.signals = ch
	}
}

func New(opts ...Option) *App {
	a := &App{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Command returns the urfave application.
func (a *App) Command() *cli.App {
	return &cli.App{
		Name:      "mailsift",
		Usage:     "search, summarize and export mail",
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to YAML config file",
				EnvVars: []string{configEnvVar},
			},
		},
		Commands: []*cli.Command{
			a.searchCommand(),
			a.quickCommand(),
			a.foldersCommand(),
			a.exportCommand(),
			a.summaryCommand(),
			a.serveCommand(),
		},
	}
}

func (a *App) Run(ctx context.Context, args []string) error {
	return a.Command().RunContext(ctx, args)
}

// Execute runs the command line against the process arguments.
func Execute() {
	if err := New().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
