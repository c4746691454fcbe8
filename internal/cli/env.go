package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"aaronromeo.com/mailsift/internal/config"
	"aaronromeo.com/mailsift/internal/export"
	"aaronromeo.com/mailsift/internal/imap"
	"aaronromeo.com/mailsift/internal/imap/sessionmanager"
	"aaronromeo.com/mailsift/internal/telemetry"
	"aaronromeo.com/mailsift/internal/worker"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/search"
	"aaronromeo.com/mailsift/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const configEnvVar = config.EnvConfig
const defaultEnvFile = ".env"

type environment struct {
	cfg       config.Config
	logger    *slog.Logger
	connector worker.Connector
}

func (e *environment) engineOptions() []search.EngineOption {
	return []search.EngineOption{
		search.WithDefaultMaxResults(e.cfg.Search.MaxResults),
		search.WithPreviewLength(e.cfg.Search.PreviewLength),
	}
}

// sink builds the export destination the config selects.
func (e *environment) sink() (export.Sink, error) {
	if e.cfg.Export.Sink != config.SinkS3 {
		return export.NewFileSink(nil), nil
	}
	s3Env, err := config.S3EnvFromEnv()
	if err != nil {
		return nil, err
	}
	return export.NewS3Sink(e.cfg.S3Config(s3Env))
}

// withEnv loads the environment, runs fn and flushes telemetry.
func (a *App) withEnv(c *cli.Context, fn func(env *environment) error) error {
	if err := loadEnvFile(); err != nil {
		return err
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, shutdown, err := telemetry.Setup(c.Context, telemetry.Config{
		Exporter:    cfg.Telemetry.Exporter,
		ServiceName: cfg.Telemetry.ServiceName,
		Writer:      a.stderr,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to flush telemetry", slog.Any("error", utils.WrapError(err)))
		}
	}()

	env := &environment{cfg: cfg, logger: logger, connector: a.connector}
	if env.connector == nil {
		if env.connector, err = imapConnector(cfg, logger); err != nil {
			return err
		}
	}
	return fn(env)
}

// loadConfig reads path, falling back to the defaults when no file is given.
func loadConfig(path string) (config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func loadEnvFile() error {
	if _, err := os.Stat(defaultEnvFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(defaultEnvFile)
}

func imapConnector(cfg config.Config, logger *slog.Logger) (worker.Connector, error) {
	if err := config.ValidateEnv(cfg); err != nil {
		return nil, err
	}
	imapEnv, err := config.IMAPEnvFromEnv()
	if err != nil {
		return nil, err
	}
	names, err := cfg.FolderNames()
	if err != nil {
		return nil, err
	}

	return worker.ConnectorFunc(func(context.Context) (mailbox.Gateway, error) {
		client := imap.New(
			sessionmanager.WithAddr(imapEnv.Addr()),
			sessionmanager.WithCreds(imapEnv.User, imapEnv.Pass),
		)
		if err := client.Connect(); err != nil {
			return nil, errors.Wrapf(err, "connect to %s", imapEnv.Addr())
		}
		gateway, err := imap.NewGateway(
			imap.WithRunner(client),
			imap.WithFolderNames(names),
			imap.WithLogger(logger),
		)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return gateway, nil
	}), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
