package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mediakit/contentgate/pkg/contentgate"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal established by the auth
// middleware, or the anonymous principal when none is present.
func PrincipalFromContext(ctx context.Context) contentgate.Principal {
	if p, ok := ctx.Value(principalContextKey{}).(contentgate.Principal); ok {
		return p
	}
	return contentgate.AnonymousPrincipal()
}

// WithPrincipal returns a copy of ctx carrying the given principal. Used by
// tests and by embedding callers that authenticate upstream.
func WithPrincipal(ctx context.Context, p contentgate.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// identityClaims is the expected shape of the bearer token payload. The token
// is minted by the upstream identity provider; its claims are trusted here.
type identityClaims struct {
	jwt.RegisteredClaims
	Role         string   `json:"role"`
	Groups       []string `json:"groups,omitempty"`
	Capabilities []string `json:"caps,omitempty"`
}

// Authenticator returns middleware that resolves the request principal from
// an optional Authorization bearer token. Requests without a token proceed as
// the anonymous principal; requests with a malformed or badly signed token
// are rejected.
func Authenticator(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(
					WithPrincipal(r.Context(), contentgate.AnonymousPrincipal())))
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			principal, err := principalFromToken(token, key)
			if err != nil {
				slog.Error("Failed to verify bearer token", "error", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func principalFromToken(tokenString string, key []byte) (contentgate.Principal, error) {
	var claims identityClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		return contentgate.Principal{}, fmt.Errorf("parse token: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return contentgate.Principal{}, fmt.Errorf("invalid subject claim: %w", err)
	}

	extra := make([]contentgate.Capability, 0, len(claims.Capabilities))
	for _, name := range claims.Capabilities {
		parsed, err := contentgate.ParseCapability(name)
		if err != nil {
			return contentgate.Principal{}, err
		}
		extra = append(extra, parsed)
	}

	p := contentgate.NewPrincipal(userID, contentgate.Role(claims.Role), extra...)
	for _, g := range claims.Groups {
		gid, err := uuid.Parse(g)
		if err != nil {
			return contentgate.Principal{}, fmt.Errorf("invalid group claim: %w", err)
		}
		p.GroupIDs = append(p.GroupIDs, gid)
	}
	return p, nil
}
