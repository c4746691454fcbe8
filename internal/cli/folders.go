package cli

import (
	"aaronromeo.com/mailsift/internal/worker"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"github.com/urfave/cli/v2"
)

const defaultFolderDepth = 2

func (a *App) foldersCommand() *cli.Command {
	return &cli.Command{
		Name:  "folders",
		Usage: "Print the folder hierarchy with message counts",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "depth", Value: defaultFolderDepth, Usage: "Deepest level to list"},
		},
		Action: func(c *cli.Context) error {
			return a.withEnv(c, func(env *environment) error {
				var folders []mailbox.FolderInfo
				err := a.runWorker(c, env, nil, func(w *worker.Worker, finish func(error)) {
					w.ListFolders(c.Int("depth"), func(infos []mailbox.FolderInfo) {
						folders = infos
						finish(nil)
					}, finish)
				})
				if err != nil {
					return err
				}
				return writeJSON(a.stdout, folders)
			})
		},
	}
}
