package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fetchkids/api/internal/platform/httpx"
)

// writeTranslated handles errors already shaped as httpx envelopes and hides
// everything else behind a generic 500.
func writeTranslated(ctx context.Context, w http.ResponseWriter, err error) {
	var envelope httpx.Error
	if errors.As(err, &envelope) {
		httpx.WriteError(ctx, w, envelope)
		return
	}
	httpx.WriteError(ctx, w, httpx.Internal("something went wrong"))
}

// trimSentinel drops the "<area>: <kind>: " sentinel prefix so client-facing
// messages read naturally.
func trimSentinel(message string) string {
	if idx := strings.LastIndex(message, ": "); idx >= 0 && idx+2 < len(message) {
		return message[idx+2:]
	}
	return message
}
