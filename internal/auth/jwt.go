package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer издатель токенов редактора
const Issuer = "voxel-level"

// DefaultTTL срок действия токена по умолчанию
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken токен не прошёл проверку
var ErrInvalidToken = errors.New("недействительный токен")

// Claims represents JWT claims
type Claims struct {
	Editor string `json:"editor"`
	jwt.RegisteredClaims
}

// Authority выпускает и проверяет токены на запись в уровень
type Authority struct {
	secret []byte
}

// NewAuthority создаёт Authority с секретом в base64.
// Пустая строка означает случайный секрет, живущий до перезапуска процесса.
func NewAuthority(secret string) (*Authority, error) {
	if secret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("ошибка генерации секрета: %w", err)
		}
		return &Authority{secret: b}, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("секрет должен быть в base64: %w", err)
	}
	if len(decoded) < 32 {
		return nil, errors.New("секрет должен быть не короче 32 байт")
	}
	return &Authority{secret: decoded}, nil
}

// Issue создаёт подписанный токен для редактора
func (a *Authority) Issue(editor string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	claims := &Claims{
		Editor: editor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   editor,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Validate проверяет подпись и срок действия токена
func (a *Authority) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithIssuer(Issuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecureSecret generates a new secure secret key
func GenerateSecureSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
