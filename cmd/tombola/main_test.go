package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferedLogger(t *testing.T, buf *bytes.Buffer) *zap.Logger {
	ws := &zapcore.BufferedWriteSyncer{WS: zapcore.AddSync(buf), Size: 64 * 1024}
	t.Cleanup(func() { _ = ws.Stop() })
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), ws, zapcore.InfoLevel)
	return zap.New(core)
}

func TestExitCode_FlushesFailure(t *testing.T) {
	var buf bytes.Buffer
	log := bufferedLogger(t, &buf)

	assert.Equal(t, 1, exitCode(log, errors.New("listen tcp :8080: address already in use")))
	assert.Contains(t, buf.String(), "server stopped")
	assert.Contains(t, buf.String(), "address already in use")
}

func TestExitCode_CleanShutdown(t *testing.T) {
	var buf bytes.Buffer

	assert.Equal(t, 0, exitCode(bufferedLogger(t, &buf), nil))
	assert.Empty(t, buf.String())
}
