package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// AuthOptions configures bearer token authentication.
type AuthOptions struct {
	// Enabled requires a valid HS256 token on every API call. When false
	// callers act as core.AnonymousActor.
	Enabled  bool
	Secret   string
	Issuer   string
	Audience string
}

// actorFromToken validates a bearer token and returns the caller identity
// taken from the "sub" claim, falling back to "name".
func (a AuthOptions) actorFromToken(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if a.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.Issuer))
	}
	if a.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.Secret), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	if sub, _ := claims.GetSubject(); sub != "" {
		return sub, nil
	}
	if name, _ := claims["name"].(string); name != "" {
		return name, nil
	}
	return "", errors.New("token has no subject")
}

// authenticate attaches the caller identity to the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.opts.Auth.Enabled {
			next.ServeHTTP(w, r.WithContext(core.WithActor(r.Context(), core.AnonymousActor)))
			return
		}

		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="leapgate"`)
			s.writeError(w, r, &apiError{code: core.CodeUnauthorized, message: "missing bearer token"})
			return
		}
		actor, err := s.opts.Auth.actorFromToken(tokenString)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="leapgate", error="invalid_token"`)
			s.writeError(w, r, &apiError{code: core.CodeUnauthorized, message: err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(core.WithActor(r.Context(), actor)))
	})
}
