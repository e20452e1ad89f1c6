package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/plotapi/internal/web/middleware"
)

type metadataKey struct{}

// requestMetadata is the caller information kept for the audit trail.
type requestMetadata struct {
	IPAddress string
	UserAgent string
}

// WithRequestMetadata adds IP and User-Agent to context for audit logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, metadataKey{}, requestMetadata{
		IPAddress: middleware.ClientIP(r), // already rewritten by TrustedRealIP
		UserAgent: r.UserAgent(),
	})
}

func metadataFrom(ctx context.Context) requestMetadata {
	md, _ := ctx.Value(metadataKey{}).(requestMetadata)
	return md
}
