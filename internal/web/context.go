package web

import (
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/staffdir/internal/logging"
)

// auditLogger tags mutation logs with the caller's IP and User-Agent.
// RemoteAddr has already been rewritten by TrustedRealIP.
func auditLogger(r *http.Request) *slog.Logger {
	return logging.WithFields(r.Context(),
		"ip", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	)
}
