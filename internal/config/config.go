package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"aaronromeo.com/mailsift/internal/export"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfig = "MAILSIFT_CONFIG"

	envIMAPHost   = "MAILSIFT_IMAP_HOST"
	envIMAPPort   = "MAILSIFT_IMAP_PORT"
	envIMAPUser   = "MAILSIFT_IMAP_USER"
	envIMAPPass   = "MAILSIFT_IMAP_PASS"
	envS3Endpoint = "MAILSIFT_S3_ENDPOINT"
	envS3Region   = "MAILSIFT_S3_REGION"
	envS3Bucket   = "MAILSIFT_S3_BUCKET"
	envS3Key      = "MAILSIFT_S3_KEY"
	envS3Secret   = "MAILSIFT_S3_SECRET"
	envWebhookURL = "MAILSIFT_WEBHOOK_URL"
)

const (
	SinkFile = "file"
	SinkS3   = "s3"

	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"

	DefaultMaxResults    = 500
	DefaultPreviewLength = 200
	DefaultServerAddr    = "127.0.0.1:8080"
	DefaultServiceName   = "mailsift"
)

// Config holds non-secret configuration loaded from YAML.
type Config struct {
	Search    Search            `yaml:"search"`
	Folders   map[string]string `yaml:"folders"`
	Export    Export            `yaml:"export"`
	Server    Server            `yaml:"server"`
	Telemetry Telemetry         `yaml:"telemetry"`
}

type Search struct {
	MaxResults    int `yaml:"max_results"`
	PreviewLength int `yaml:"preview_length"`
}

// Export holds the export defaults. Sink is "file" or "s3"; an S3 sink takes
// its bucket and credentials from the environment.
type Export struct {
	OutputDir  string   `yaml:"output_dir"`
	OrganizeBy string   `yaml:"organize_by"`
	FileTypes  []string `yaml:"file_types"`
	KeepInline bool     `yaml:"keep_inline"`
	Sink       string   `yaml:"sink"`
	Prefix     string   `yaml:"prefix"`
}

// Options returns the export options the config describes.
func (e Export) Options() (export.Options, error) {
	organize, err := export.ParseOrganizeBy(e.OrganizeBy)
	if err != nil {
		return export.Options{}, err
	}
	return export.Options{
		OutputDir:  e.OutputDir,
		OrganizeBy: organize,
		FileTypes:  e.FileTypes,
		KeepInline: e.KeepInline,
	}, nil
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Telemetry struct {
	Exporter    string `yaml:"exporter"`
	ServiceName string `yaml:"service_name"`
}

// IMAPEnv holds the IMAP connection details from environment variables.
type IMAPEnv struct {
	Host string
	Port int
	User string
	Pass string
}

func (e IMAPEnv) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// S3Env holds the object storage details from environment variables.
type S3Env struct {
	Endpoint string
	Region   string
	Bucket   string
	Key      string
	Secret   string
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = DefaultMaxResults
	}
	if c.Search.PreviewLength == 0 {
		c.Search.PreviewLength = DefaultPreviewLength
	}
	if strings.TrimSpace(c.Export.Sink) == "" {
		c.Export.Sink = SinkFile
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// Load reads configuration from a YAML file and fills in defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// FolderNames returns the configured fallback mailbox names keyed by kind.
func (c Config) FolderNames() (map[mailbox.FolderKind]string, error) {
	names := make(map[mailbox.FolderKind]string, len(c.Folders))
	for key, name := range c.Folders {
		kind, err := mailbox.ParseFolderKind(key)
		if err != nil {
			return nil, fmt.Errorf("invalid folders.%s: %w", key, err)
		}
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("folders.%s must not be empty", key)
		}
		names[kind] = strings.TrimSpace(name)
	}
	return names, nil
}

// Validate performs basic validation on non-secret config.
func Validate(cfg Config) error {
	if cfg.Search.MaxResults < 0 {
		return errors.New("search.max_results must be positive")
	}
	if cfg.Search.PreviewLength < 0 {
		return errors.New("search.preview_length must be positive")
	}
	names, err := cfg.FolderNames()
	if err != nil {
		return err
	}
	if _, ok := names[mailbox.Inbox]; ok {
		return errors.New("folders.inbox cannot be renamed")
	}
	if _, err := export.ParseOrganizeBy(cfg.Export.OrganizeBy); err != nil {
		return fmt.Errorf("invalid export.organize_by: %w", err)
	}
	switch cfg.Export.Sink {
	case "", SinkFile, SinkS3:
	default:
		return fmt.Errorf("unsupported export.sink %q", cfg.Export.Sink)
	}
	switch cfg.Telemetry.Exporter {
	case "", ExporterStdout, ExporterOTLP:
	default:
		return fmt.Errorf("unsupported telemetry.exporter %q", cfg.Telemetry.Exporter)
	}
	return nil
}

// ValidateEnv ensures required environment variables are set. The S3
// variables are only required when the export sink is S3.
func ValidateEnv(cfg Config) error {
	missing := []string{}
	for _, name := range requiredEnvVars(cfg) {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
}

// IMAPEnvFromEnv loads IMAP connection details and validates required entries.
func IMAPEnvFromEnv() (IMAPEnv, error) {
	missing := []string{}

	host := strings.TrimSpace(os.Getenv(envIMAPHost))
	if host == "" {
		missing = append(missing, envIMAPHost)
	}

	portRaw := strings.TrimSpace(os.Getenv(envIMAPPort))
	if portRaw == "" {
		missing = append(missing, envIMAPPort)
	}

	user := strings.TrimSpace(os.Getenv(envIMAPUser))
	if user == "" {
		missing = append(missing, envIMAPUser)
	}

	pass := strings.TrimSpace(os.Getenv(envIMAPPass))
	if pass == "" {
		missing = append(missing, envIMAPPass)
	}

	if len(missing) > 0 {
		return IMAPEnv{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	port, err := strconv.Atoi(portRaw)
	if err != nil {
		return IMAPEnv{}, fmt.Errorf("invalid %s: %w", envIMAPPort, err)
	}

	return IMAPEnv{
		Host: host,
		Port: port,
		User: user,
		Pass: pass,
	}, nil
}

// S3EnvFromEnv loads the object storage details. The endpoint is optional.
func S3EnvFromEnv() (S3Env, error) {
	env := S3Env{
		Endpoint: strings.TrimSpace(os.Getenv(envS3Endpoint)),
		Region:   strings.TrimSpace(os.Getenv(envS3Region)),
		Bucket:   strings.TrimSpace(os.Getenv(envS3Bucket)),
		Key:      strings.TrimSpace(os.Getenv(envS3Key)),
		Secret:   strings.TrimSpace(os.Getenv(envS3Secret)),
	}

	missing := []string{}
	for name, value := range map[string]string{
		envS3Region: env.Region,
		envS3Bucket: env.Bucket,
		envS3Key:    env.Key,
		envS3Secret: env.Secret,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return S3Env{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return env, nil
}

// S3Config builds the sink configuration for env and the configured prefix.
func (c Config) S3Config(env S3Env) export.S3Config {
	return export.S3Config{
		Bucket:          env.Bucket,
		Prefix:          c.Export.Prefix,
		Region:          env.Region,
		Endpoint:        env.Endpoint,
		AccessKeyID:     env.Key,
		SecretAccessKey: env.Secret,
	}
}

// WebhookURL returns the completion webhook, empty when reporting is off.
func WebhookURL() string {
	return strings.TrimSpace(os.Getenv(envWebhookURL))
}

// ReportingEnabled returns true when a webhook URL is configured via env var.
func ReportingEnabled() bool {
	return WebhookURL() != ""
}

// Summary returns a concise config summary for validation runs.
func Summary(cfg Config) string {
	reportingStatus := "disabled"
	if ReportingEnabled() {
		reportingStatus = "enabled"
	}
	return fmt.Sprintf(
		"Config summary\n"+
			"- max results: %d\n"+
			"- folder overrides: %d\n"+
			"- export sink: %s\n"+
			"- export dir: %s\n"+
			"- telemetry: %s\n"+
			"- reporting webhook: %s",
		cfg.Search.MaxResults,
		len(cfg.Folders),
		defaultIfEmpty(cfg.Export.Sink, SinkFile),
		defaultIfEmpty(cfg.Export.OutputDir, "(not set)"),
		defaultIfEmpty(cfg.Telemetry.Exporter, "disabled"),
		reportingStatus,
	)
}

func requiredEnvVars(cfg Config) []string {
	vars := []string{
		envIMAPHost,
		envIMAPPort,
		envIMAPUser,
		envIMAPPass,
	}
	if cfg.Export.Sink == SinkS3 {
		vars = append(vars,
			envS3Region,
			envS3Bucket,
			envS3Key,
			envS3Secret,
		)
	}
	return vars
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
