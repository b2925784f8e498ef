package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestLogger_InjectsLogCtx(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "dispatch-service", LevelDebug)

	ctx := wrap.WithAction(context.Background(), "dispatch_run_started")
	ctx = wrap.WithRunID(ctx, "run-1")
	ctx = wrap.WithDriverID(ctx, 42)

	log.Info(ctx, "run started", "orders", 3)

	line := decodeLine(t, &buf)
	assert.Equal(t, "run started", line["message"])
	assert.Equal(t, "dispatch-service", line["service"])
	assert.Equal(t, "dispatch_run_started", line["action"])
	assert.Equal(t, "run-1", line["run_id"])
	assert.Equal(t, "42", line["driver_id"])
	assert.EqualValues(t, 3, line["orders"])
	assert.NotContains(t, line, "offer_id")
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "svc", LevelWarn)

	log.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	log.Warn(context.Background(), "shown")
	assert.Equal(t, "WARN", decodeLine(t, &buf)["level"])
}

func TestLogger_ErrorCarriesOriginContext(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "svc", LevelInfo)

	inner := wrap.WithOfferID(wrap.WithAction(context.Background(), "offer_accepted"), "offer-7")
	err := wrap.Error(inner, errors.New("persist failed"))
	err = fmt.Errorf("Orchestrator.Accept: %w", err)

	outer := wrap.WithRequestID(wrap.WithAction(context.Background(), "ws_accept"), "req-1")
	log.Error(wrap.ErrorCtx(outer, err), "accept failed", err)

	line := decodeLine(t, &buf)
	// the error site wins, gaps are filled from the caller
	assert.Equal(t, "offer_accepted", line["action"])
	assert.Equal(t, "offer-7", line["offer_id"])
	assert.Equal(t, "req-1", line["request_id"])

	errGroup, ok := line["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Orchestrator.Accept: persist failed", errGroup["msg"])
	assert.NotContains(t, errGroup, "message")
}

func TestValidateLogLevel(t *testing.T) {
	assert.True(t, ValidateLogLevel("INFO"))
	assert.False(t, ValidateLogLevel("info"))
	assert.False(t, ValidateLogLevel("TRACE"))
}
