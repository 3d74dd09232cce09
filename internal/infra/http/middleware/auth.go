// Package middleware contains the HTTP middleware chain.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/remedyops/findings-api/internal/app"
	"github.com/remedyops/findings-api/pkg/apierror"
	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
)

type contextKey string

const userContextKey contextKey = "authenticated_user"

// UserFromContext retrieves the authenticated user from the request context.
func UserFromContext(ctx context.Context) *accesscontrol.AuthenticatedUser {
	user, _ := ctx.Value(userContextKey).(*accesscontrol.AuthenticatedUser)
	return user
}

// Auth verifies the bearer token and resolves it into a strict authenticated
// user before any handler runs. Unreadable identity fails the request here,
// never deeper in the stack.
func Auth(auth *app.AuthService, secret string) func(http.Handler) http.Handler {
	keyFunc := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				apierror.Unauthorized("Missing bearer token").WriteJSON(w)
				return
			}

			token, err := jwt.Parse(raw, keyFunc, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
			if err != nil || !token.Valid {
				apierror.Unauthorized("Invalid token").WriteJSON(w)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				apierror.Unauthorized("Unreadable identity claims").WriteJSON(w)
				return
			}

			user, err := auth.Resolve(claims)
			if err != nil {
				apierror.Unauthorized("Unreadable identity claims").WriteJSON(w)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
