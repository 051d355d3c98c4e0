package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/checkout-backend/api/responses"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

const userIDHeader = "X-User-Id"

// IdentityResolver maps an optional X-User-Id header value onto a concrete
// user id, provisioning the fallback demo user when the header is absent.
type IdentityResolver interface {
	Resolve(ctx context.Context, headerValue string) (string, error)
}

// Identity resolves the acting user for every API request and stores the id
// in the request context.
func Identity(resolver IdentityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if resolver == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity resolver not configured"))
				return
			}

			userID, err := resolver.Resolve(ctx, strings.TrimSpace(r.Header.Get(userIDHeader)))
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithUserID(ctx, userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
