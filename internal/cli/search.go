package cli

import (
	"strings"

	"aaronromeo.com/mailsift/internal/report"
	"aaronromeo.com/mailsift/internal/worker"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/search"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

type searchOutput struct {
	Records   []search.EmailRecord `json:"records"`
	Count     int                  `json:"count"`
	Cancelled bool                 `json:"cancelled"`
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "subject", Usage: "Subject contains"},
		&cli.StringFlag{Name: "sender", Usage: "Sender name or address contains"},
		&cli.StringFlag{Name: "date-from", Usage: "Received on or after DD-MM-YYYY"},
		&cli.StringFlag{Name: "date-to", Usage: "Received on or before DD-MM-YYYY"},
		&cli.StringFlag{Name: "folder", Value: string(mailbox.Inbox), Usage: "inbox, sent, drafts, deleted, junk or outbox"},
		&cli.StringFlag{Name: "subfolder", Usage: "Subfolder of --folder"},
		&cli.BoolFlag{Name: "has-attachments", Usage: "Only messages with attachments, or without with =false"},
		&cli.StringFlag{Name: "body", Usage: "Body contains"},
		&cli.StringFlag{Name: "recipient", Usage: "A recipient name or address contains"},
		&cli.IntFlag{Name: "max-results", Usage: "Stop after this many matches (default from config)"},
	}
}

func filterFromFlags(c *cli.Context) search.Filter {
	f := search.Filter{
		Subject:      c.String("subject"),
		Sender:       c.String("sender"),
		DateFrom:     c.String("date-from"),
		DateTo:       c.String("date-to"),
		Folder:       c.String("folder"),
		Subfolder:    c.String("subfolder"),
		BodyContains: c.String("body"),
		Recipient:    c.String("recipient"),
		MaxResults:   c.Int("max-results"),
	}
	if c.IsSet("has-attachments") {
		v := c.Bool("has-attachments")
		f.HasAttachments = &v
	}
	return f
}

// search runs filter on a fresh session. Interrupted searches return the
// matches found so far.
func (a *App) search(c *cli.Context, env *environment, filter search.Filter) (searchOutput, error) {
	var out searchOutput
	err := a.runWorker(c, env, nil, func(w *worker.Worker, finish func(error)) {
		w.Search(filter, func(records []search.EmailRecord, cancelled bool) {
			out = searchOutput{Records: records, Count: len(records), Cancelled: cancelled}
			finish(nil)
		}, finish)
	})
	return out, err
}

func (a *App) searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search a folder and print the matching messages",
		Flags: filterFlags(),
		Action: func(c *cli.Context) error {
			return a.withEnv(c, func(env *environment) error {
				out, err := a.search(c, env, filterFromFlags(c))
				if err != nil {
					return err
				}
				return writeJSON(a.stdout, out)
			})
		},
	}
}

func (a *App) quickCommand() *cli.Command {
	return &cli.Command{
		Name:      "quick",
		Usage:     "Search the inbox by subject and sender at once",
		ArgsUsage: "<term>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max-results", Usage: "Stop each pass after this many matches", Value: search.DefaultQuickResults},
		},
		Action: func(c *cli.Context) error {
			term := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if term == "" {
				return errors.New("quick requires a search term")
			}
			return a.withEnv(c, func(env *environment) error {
				var out searchOutput
				err := a.runWorker(c, env, nil, func(w *worker.Worker, finish func(error)) {
					w.QuickSearch(term, c.Int("max-results"), func(records []search.EmailRecord, cancelled bool) {
						out = searchOutput{Records: records, Count: len(records), Cancelled: cancelled}
						finish(nil)
					}, finish)
				})
				if err != nil {
					return err
				}
				return writeJSON(a.stdout, out)
			})
		},
	}
}

func (a *App) summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Search a folder and print totals, date range and top senders",
		Flags: filterFlags(),
		Action: func(c *cli.Context) error {
			return a.withEnv(c, func(env *environment) error {
				out, err := a.search(c, env, filterFromFlags(c))
				if err != nil {
					return err
				}
				return writeJSON(a.stdout, report.Summarize(out.Records))
			})
		},
	}
}
