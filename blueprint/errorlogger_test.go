package blueprint

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogErrorLogger_LogsOperationCauseAndRetryCount(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	l := &slogErrorLogger{logger: logger}

	l.LogError(context.Background(), "ChargeCard", errors.New("gateway timeout"), 3)

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "ChargeCard")
	assert.Contains(t, out, "gateway timeout")
	assert.Contains(t, out, "\"retryCount\":3")
	assert.Contains(t, out, "correlationId")
}
