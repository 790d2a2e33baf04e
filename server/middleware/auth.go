package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/pipekit/errors"
)

// AuthConfig configures bearer-token authentication.
type AuthConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Secret is the HMAC key tokens are signed with.
	Secret string `yaml:"secret" mapstructure:"secret"`
	// Issuer, when set, must match the "iss" claim.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// TokenValidator validates a raw token and returns its claims.
type TokenValidator func(token string) (jwt.MapClaims, error)

// HMACValidator accepts HS256/HS384/HS512 tokens signed with secret.
func HMACValidator(secret []byte, issuer string) TokenValidator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return func(raw string) (jwt.MapClaims, error) {
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("jwt: parse token: %w", err)
		}
		if !token.Valid {
			return nil, fmt.Errorf("jwt: invalid token")
		}
		return claims, nil
	}
}

type claimsKey struct{}

// Auth returns middleware that requires a valid "Authorization: Bearer"
// header. Validated claims are available through ClaimsFromContext.
func Auth(validate TokenValidator, skipPaths ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				WriteError(w, errors.Unauthorized("Authorization header required."))
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				WriteError(w, errors.Unauthorized("Invalid authorization header format."))
				return
			}
			claims, err := validate(token)
			if err != nil {
				WriteError(w, errors.Unauthorized("Invalid token.").WithCause(err))
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by Auth.
func ClaimsFromContext(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(jwt.MapClaims)
	return claims, ok
}
