package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithoutExporterLogsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, shutdown, err := Setup(context.Background(), Config{Writer: &buf, ServiceName: "mailsift"})
	require.NoError(t, err)

	logger.Info("search completed", "matches", 3)
	require.NoError(t, shutdown(context.Background()))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "search completed", entry["msg"])
	assert.EqualValues(t, 3, entry["matches"])
}

func TestSetupStdoutBridgesLogs(t *testing.T) {
	var buf bytes.Buffer
	logger, shutdown, err := Setup(context.Background(), Config{Exporter: ExporterStdout, Writer: &buf, ServiceName: "mailsift"})
	require.NoError(t, err)

	logger.Info("worker ready")
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "worker ready")
	assert.Contains(t, buf.String(), "mailsift")
}

func TestSetupRejectsUnknownExporter(t *testing.T) {
	_, _, err := Setup(context.Background(), Config{Exporter: "jaeger"})
	assert.EqualError(t, err, `unsupported telemetry exporter "jaeger"`)
}
