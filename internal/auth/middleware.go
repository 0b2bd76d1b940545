// internal/auth/middleware.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/unclebandit/crowdfund-backend/internal/address"
)

type signerKey struct{}

func WithSigner(ctx context.Context, signer address.Address) context.Context {
	return context.WithValue(ctx, signerKey{}, signer)
}

func SignerFrom(ctx context.Context) (address.Address, bool) {
	signer, ok := ctx.Value(signerKey{}).(address.Address)
	return signer, ok && !signer.IsZero()
}

// RequireSigner rejects requests without a valid bearer token and stores the
// verified signer in the request context.
func RequireSigner(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			signer, err := v.Verify(token)
			if err != nil {
				writeUnauthorized(w, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSigner(r.Context(), signer)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "Unauthorized",
		"message": message,
	})
}
