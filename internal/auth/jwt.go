package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT token payload. The host application puts the user id
// in "uid"; tokens that only carry a numeric "sub" are accepted as well.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"uid,omitempty"`
	TokenType string `json:"typ,omitempty"` // "access" when set
}

const tokenTypeAccess = "access"

// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// User returns the authenticated user id.
func (c *Claims) User() (int64, bool) {
	if c.UserID > 0 {
		return c.UserID, true
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// IssueAccessToken creates a signed JWT access token. Beacon only verifies
// tokens in production; this is used by tooling and tests.
func IssueAccessToken(secret, issuer string, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		UserID:    userID,
		TokenType: tokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.IssueAccessToken: %w", err)
	}

	return signed, nil
}

// Verifier validates access tokens for one secret and issuer.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier returns a Verifier. An empty issuer accepts any issuer.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates a token and returns the user it authenticates.
func (v *Verifier) Verify(tokenString string) (int64, error) {
	claims, err := ValidateToken(v.secret, v.issuer, tokenString)
	if err != nil {
		return 0, fmt.Errorf("auth.Verifier.Verify: %w", err)
	}
	if claims.TokenType != "" && claims.TokenType != tokenTypeAccess {
		return 0, fmt.Errorf("auth.Verifier.Verify: %w", ErrInvalidToken)
	}
	uid, ok := claims.User()
	if !ok {
		return 0, fmt.Errorf("auth.Verifier.Verify: %w", ErrInvalidToken)
	}
	return uid, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret []byte, issuer, tokenString string) (*Claims, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}
