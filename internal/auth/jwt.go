package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sorianoB28/big-feelings-toolkit-app/internal/model"
)

// Claims are set once at login and trusted for the token's lifetime; a role
// edit does not take effect until the token is rotated. The refresh path
// re-reads the user row, so the staleness window is bounded by the
// access-token TTL.
type Claims struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Name   *string    `json:"name,omitempty"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

func NewAccessToken(secret, issuer string, ttl time.Duration, claims Claims) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, issuer, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if _, valid := model.ParseRole(string(claims.Role)); !valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
