package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated player behind a request.
type Identity struct {
	ID   string
	Name string
}

type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticator verifies and issues HS256 bearer tokens.
type Authenticator struct {
	hmac []byte
	ttl  time.Duration
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{hmac: []byte(secret), ttl: 24 * time.Hour}
}

// Issue signs a token for the player. Used by tests and local tooling.
func (a *Authenticator) Issue(id, name string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    "anime-quiz",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.hmac)
}

func (a *Authenticator) Parse(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Identity{}, errors.New("invalid token claims")
	}
	return Identity{ID: claims.Subject, Name: claims.Name}, nil
}

// Middleware attaches the caller's identity when a valid bearer token is
// present. Requests without one continue anonymously; handlers decide whether
// an identity is required.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := a.Parse(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// bearer reads the Authorization header, falling back to the access_token
// query parameter that browsers must use for WebSocket upgrades.
func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// FromContext returns the zero Identity for anonymous requests.
func FromContext(ctx context.Context) Identity {
	if v, ok := ctx.Value(ctxKeyIdentity).(Identity); ok {
		return v
	}
	return Identity{}
}
