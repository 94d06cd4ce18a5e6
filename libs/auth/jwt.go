package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are issued by the external auth service. SalonIDs lists the tenants the
// subject may act on.
type Claims struct {
	Role     string   `json:"role"`
	SalonIDs []string `json:"salon_ids"`
	jwt.RegisteredClaims
}

// CanAccess reports whether the token grants access to salonID.
func (c *Claims) CanAccess(salonID string) bool {
	return salonID != "" && slices.Contains(c.SalonIDs, salonID)
}

type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}
}

func (v *Verifier) Parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignHS256 mints a token; used by tooling and tests in place of the auth service.
func SignHS256(claims Claims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// NewClaims builds claims valid for ttl from now.
func NewClaims(subject, role string, salonIDs []string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		Role:     role,
		SalonIDs: salonIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
