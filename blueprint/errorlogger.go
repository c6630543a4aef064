package blueprint

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// slogErrorLogger is the registry.ErrorLogger a Host wires into its
// Registry: every UnhandledException cause is logged through slog with
// a freshly minted correlation id, so a dispatch failure can be
// correlated across logs even though Blueprint itself has no request-id
// concept of its own.
type slogErrorLogger struct {
	logger *slog.Logger
}

func (l *slogErrorLogger) LogError(ctx context.Context, operationName string, cause error, retryCount int) {
	l.logger.ErrorContext(ctx, "operation execution failed",
		slog.String("operation", operationName),
		slog.String("correlationId", uuid.NewString()),
		slog.Int("retryCount", retryCount),
		slog.String("error", cause.Error()),
	)
}
