package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Codec подписывает и проверяет компактные JWT-утверждения (HS256).
// У access- и refresh-кодеков свои секреты и времена жизни, поэтому токен
// одного кодека никогда не проходит проверку другим.
type Codec struct {
	issuer string
	secret []byte
	ttl    time.Duration
}

func NewCodec(issuer, secret string, ttl time.Duration) *Codec {
	return &Codec{
		issuer: issuer,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (c *Codec) Sign(subject string) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// * Verify проверяет подпись и срок действия токена и возвращает subject.
func (c *Codec) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	if !parsed.Valid {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// ExtractSubject достает subject без проверки подписи. Используется только
// для сверки идентичности внутри одного запроса, сам по себе ничего не
// авторизует.
func (c *Codec) ExtractSubject(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// TTL возвращает время жизни токенов этого кодека.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}
