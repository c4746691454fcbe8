package cli

import (
	"fmt"
	"log/slog"

	"aaronromeo.com/mailsift/internal/announcer"
	"aaronromeo.com/mailsift/internal/config"
	"aaronromeo.com/mailsift/internal/export"
	"aaronromeo.com/mailsift/internal/worker"
	"aaronromeo.com/mailsift/pkg/search"
	"aaronromeo.com/mailsift/pkg/utils"
	"github.com/urfave/cli/v2"
)

func exportFlags() []cli.Flag {
	return append(filterFlags(),
		&cli.StringFlag{Name: "output-dir", Usage: "Directory (or key prefix) to save into"},
		&cli.StringFlag{Name: "organize-by", Usage: "flat, sender, date or subject"},
		&cli.StringSliceFlag{Name: "file-types", Usage: "Extensions to keep, such as .pdf"},
		&cli.BoolFlag{Name: "keep-inline", Usage: "Also export images embedded in the body"},
	)
}

func exportOptions(c *cli.Context, cfg config.Config) (export.Options, error) {
	opts, err := cfg.Export.Options()
	if err != nil {
		return export.Options{}, err
	}
	if c.IsSet("output-dir") {
		opts.OutputDir = c.String("output-dir")
	}
	if c.IsSet("organize-by") {
		if opts.OrganizeBy, err = export.ParseOrganizeBy(c.String("organize-by")); err != nil {
			return export.Options{}, err
		}
	}
	if c.IsSet("file-types") {
		opts.FileTypes = c.StringSlice("file-types")
	}
	if c.IsSet("keep-inline") {
		opts.KeepInline = c.Bool("keep-inline")
	}
	return opts, nil
}

func (a *App) exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Search a folder and save the attachments of the matches",
		Flags: exportFlags(),
		Action: func(c *cli.Context) error {
			return a.withEnv(c, func(env *environment) error {
				opts, err := exportOptions(c, env.cfg)
				if err != nil {
					return err
				}
				sink, err := env.sink()
				if err != nil {
					return err
				}

				var account string
				var stats export.Stats
				err = a.runWorker(c, env, []worker.Option{
					worker.WithSink(sink),
					worker.WithOnReady(func(name string) { account = name }),
					worker.WithOnExportProgress(func(_, _ int, message string) {
						fmt.Fprintln(a.stderr, message)
					}),
				}, func(w *worker.Worker, finish func(error)) {
					// An interrupted search still exports what it found.
					w.Search(filterFromFlags(c), func([]search.EmailRecord, bool) {
						w.ExportAttachments(opts, func(s export.Stats) {
							stats = s
							finish(nil)
						}, finish)
					}, finish)
				})
				if err != nil {
					return err
				}

				if err := announcer.New(announcer.WithWebhookURL(config.WebhookURL())).
					Announce(c.Context, announcer.ExportMessage(account, stats)); err != nil {
					env.logger.Error("failed to announce export", slog.Any("error", utils.WrapError(err)))
				}
				return writeJSON(a.stdout, stats)
			})
		},
	}
}
