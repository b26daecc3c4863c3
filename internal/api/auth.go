package api

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/lucra-chat/internal/errors"
	"github.com/lucra-chat/internal/wallet"
)

// TokenParser validates session tokens
type TokenParser interface {
	Parse(token string) (*wallet.Claims, error)
}

type walletKey struct{}

// walletFromContext returns the wallet pinned by a session token, or ""
func walletFromContext(ctx context.Context) string {
	w, _ := ctx.Value(walletKey{}).(string)
	return w
}

// AuthMiddleware pins the request to the wallet of a valid bearer token.
// Invalid tokens are rejected; missing tokens are rejected only when required.
func AuthMiddleware(tokens TokenParser, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				if required {
					respondError(w, r, apperrors.NewUnauthorizedError("wallet session token required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokens == nil {
				respondError(w, r, apperrors.NewUnauthorizedError("invalid authorization header"))
				return
			}

			claims, err := tokens.Parse(strings.TrimSpace(token))
			if err != nil {
				respondError(w, r, apperrors.NewUnauthorizedError("invalid or expired session token"))
				return
			}

			ctx := context.WithValue(r.Context(), walletKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveWallet returns the wallet a request acts for. With a session the
// address defaults to the session wallet and must match it.
func resolveWallet(r *http.Request, address string) (string, error) {
	address = strings.TrimSpace(address)
	pinned := walletFromContext(r.Context())
	if pinned == "" {
		return address, nil
	}
	if address == "" {
		return pinned, nil
	}
	if wallet.NormalizeAddress(address) != pinned {
		return "", apperrors.NewForbiddenError("wallet address does not match session")
	}
	return address, nil
}
