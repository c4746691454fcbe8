package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aaronromeo.com/mailsift/internal/export"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		envIMAPHost, envIMAPPort, envIMAPUser, envIMAPPass,
		envS3Endpoint, envS3Region, envS3Bucket, envS3Key, envS3Secret,
		envWebhookURL,
	} {
		t.Setenv(name, "")
	}
}

func TestValidateEnvMissing(t *testing.T) {
	clearEnv(t)

	err := ValidateEnv(Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required environment variables")
	assert.NotContains(t, err.Error(), envS3Bucket)
}

func TestValidateEnvRequiresS3ForS3Sink(t *testing.T) {
	clearEnv(t)
	t.Setenv(envIMAPHost, "imap.example.com")
	t.Setenv(envIMAPPort, "993")
	t.Setenv(envIMAPUser, "user@example.com")
	t.Setenv(envIMAPPass, "password")

	cfg := Default()
	require.NoError(t, ValidateEnv(cfg))

	cfg.Export.Sink = SinkS3
	err := ValidateEnv(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), envS3Bucket)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempFile(t, "not: [valid_yaml")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempFile(t, `
export:
  output_dir: "./attachments"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxResults, cfg.Search.MaxResults)
	assert.Equal(t, DefaultPreviewLength, cfg.Search.PreviewLength)
	assert.Equal(t, SinkFile, cfg.Export.Sink)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr, "listens on loopback unless configured")
	assert.Equal(t, DefaultServiceName, cfg.Telemetry.ServiceName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "negative max results",
			yaml: `
search:
  max_results: -1
`,
			wantErr: "search.max_results",
		},
		{
			name: "unknown folder kind",
			yaml: `
folders:
  archive: "Archive"
`,
			wantErr: "folders.archive",
		},
		{
			name: "inbox override",
			yaml: `
folders:
  inbox: "Posteingang"
`,
			wantErr: "folders.inbox",
		},
		{
			name: "bad organize_by",
			yaml: `
export:
  organize_by: "color"
`,
			wantErr: "export.organize_by",
		},
		{
			name: "bad sink",
			yaml: `
export:
  sink: "ftp"
`,
			wantErr: "export.sink",
		},
		{
			name: "bad exporter",
			yaml: `
telemetry:
  exporter: "jaeger"
`,
			wantErr: "telemetry.exporter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeTempFile(t, tt.yaml))
			require.NoError(t, err)

			err = Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHappyPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(envIMAPHost, "imap.example.com")
	t.Setenv(envIMAPPort, "993")
	t.Setenv(envIMAPUser, "user@example.com")
	t.Setenv(envIMAPPass, "password")
	t.Setenv(envS3Endpoint, "https://nyc3.digitaloceanspaces.com")
	t.Setenv(envS3Region, "nyc3")
	t.Setenv(envS3Bucket, "mailsift-archive")
	t.Setenv(envS3Key, "key")
	t.Setenv(envS3Secret, "secret")
	t.Setenv(envWebhookURL, "https://example.com/webhook")

	path := writeTempFile(t, `
search:
  max_results: 100
folders:
  deleted: "Papierkorb"
  sent: "Gesendet"
export:
  output_dir: "attachments"
  organize_by: "Sender"
  file_types: [".pdf"]
  keep_inline: true
  sink: "s3"
  prefix: "mail"
telemetry:
  exporter: "stdout"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	require.NoError(t, ValidateEnv(cfg))

	names, err := cfg.FolderNames()
	require.NoError(t, err)
	assert.Equal(t, map[mailbox.FolderKind]string{mailbox.Deleted: "Papierkorb", mailbox.Sent: "Gesendet"}, names)

	opts, err := cfg.Export.Options()
	require.NoError(t, err)
	assert.Equal(t, export.Options{OutputDir: "attachments", OrganizeBy: export.BySender, FileTypes: []string{".pdf"}, KeepInline: true}, opts)

	imapEnv, err := IMAPEnvFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "imap.example.com:993", imapEnv.Addr())

	s3Env, err := S3EnvFromEnv()
	require.NoError(t, err)
	assert.Equal(t, export.S3Config{
		Bucket:          "mailsift-archive",
		Prefix:          "mail",
		Region:          "nyc3",
		Endpoint:        "https://nyc3.digitaloceanspaces.com",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}, cfg.S3Config(s3Env))

	summary := Summary(cfg)
	assert.True(t, strings.HasPrefix(summary, "Config summary"))
	assert.Contains(t, summary, "- export sink: s3")
	assert.Contains(t, summary, "- reporting webhook: enabled")
}

func TestIMAPEnvInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv(envIMAPHost, "imap.example.com")
	t.Setenv(envIMAPPort, "imaps")
	t.Setenv(envIMAPUser, "user@example.com")
	t.Setenv(envIMAPPass, "password")

	_, err := IMAPEnvFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), envIMAPPort)
}

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}
