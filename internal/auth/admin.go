package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/snapsight/snapsight/internal/api"
)

// AdminClaims bind a privileged token to one AWS account. A token is only
// honored when its account matches the account the service itself runs in.
type AdminClaims struct {
	AccountID string `json:"acct"`
	jwt.RegisteredClaims
}

// AdminTokenManager issues and validates HS256 admin tokens.
type AdminTokenManager struct {
	secret    []byte
	accountID string
}

// NewAdminTokenManager creates a manager for the given signing secret and the
// service's own AWS account ID.
func NewAdminTokenManager(secret, accountID string) *AdminTokenManager {
	return &AdminTokenManager{secret: []byte(secret), accountID: accountID}
}

// Generate signs an admin token for the manager's account. Used by operator
// tooling, not by the request path.
func (m *AdminTokenManager) Generate(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		AccountID: m.accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "snapsight",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing admin token: %w", err)
	}
	return signed, nil
}

// Validate parses the token and enforces the same-account rule.
func (m *AdminTokenManager) Validate(tokenStr string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AdminClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing admin token: %w", err)
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid admin token claims")
	}
	if claims.AccountID == "" || claims.AccountID != m.accountID {
		return nil, fmt.Errorf("admin token account mismatch")
	}

	return claims, nil
}

// AdminMiddleware guards the privileged route. A missing or invalid token is
// a hard 403; there is no fallback to the quota-gated path.
func AdminMiddleware(m *AdminTokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.NewAuthorizationError("admin credentials required"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.NewAuthorizationError("admin credentials required"))
				return
			}

			claims, err := m.Validate(parts[1])
			if err != nil {
				api.HandleError(w, api.NewAuthorizationError("admin credentials rejected"))
				return
			}

			caller := CallerContext{
				Identity:   "account#" + claims.AccountID,
				Privileged: true,
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}
