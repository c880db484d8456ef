package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// AdminRoles may read leads.
var AdminRoles = []string{"admin", "manager"}

// adminClockSkew tolerates drift between the token issuer and this server.
const adminClockSkew = 30 * time.Second

var (
	errAuthDisabled = errors.New("admin auth disabled")
	errNoBearer     = errors.New("missing bearer token")
	errBadToken     = errors.New("invalid token")
	errWrongRole    = errors.New("role not permitted")
)

// AdminClaims is the token payload issued to back-office users.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func parseAdminToken(secret, raw string) (AdminClaims, error) {
	var claims AdminClaims
	token, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(adminClockSkew),
	)
	if err != nil || !token.Valid {
		return AdminClaims{}, errBadToken
	}
	if !slices.Contains(AdminRoles, claims.Role) {
		return AdminClaims{}, errWrongRole
	}
	return claims, nil
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// AdminJWT enforces an HS256 token with an expiry and one of AdminRoles.
// An empty secret rejects everything.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeAuthError(w, http.StatusUnauthorized, errAuthDisabled)
				return
			}
			raw, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, errNoBearer)
				return
			}
			claims, err := parseAdminToken(secret, raw)
			switch {
			case errors.Is(err, errWrongRole):
				writeAuthError(w, http.StatusForbidden, err)
				return
			case err != nil:
				writeAuthError(w, http.StatusUnauthorized, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminClaimsKey, claims)))
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(AdminClaims)
	return claims, ok
}
