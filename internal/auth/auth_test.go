package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIssueValidate тестирует выпуск и проверку токена
func TestIssueValidate(t *testing.T) {
	a, err := NewAuthority("")
	require.NoError(t, err)

	token, err := a.Issue("builder", time.Hour)
	require.NoError(t, err)

	// Проверяем, что токен содержит точки (разделители частей JWT)
	if strings.Count(token, ".") != 2 {
		t.Errorf("Неверный формат JWT токена: %s", token)
	}

	claims, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "builder", claims.Editor)
	assert.Equal(t, Issuer, claims.Issuer)
}

// TestValidateInvalidJWT тестирует валидацию недействительных токенов
func TestValidateInvalidJWT(t *testing.T) {
	a, err := NewAuthority("")
	require.NoError(t, err)
	other, err := NewAuthority("")
	require.NoError(t, err)

	foreign, err := other.Issue("intruder", time.Hour)
	require.NoError(t, err)

	// Просроченный токен подписан правильным секретом
	past := time.Now().Add(-2 * time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Editor: "late",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(past),
			Issuer:    Issuer,
		},
	}).SignedString(a.secret)
	require.NoError(t, err)

	for _, invalidToken := range []string{
		"",
		"not.a.jwt",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
		foreign,
		expired,
	} {
		_, err := a.Validate(invalidToken)
		if !assert.ErrorIs(t, err, ErrInvalidToken) {
			t.Errorf("Недействительный токен '%s' прошел валидацию", invalidToken)
		}
	}
}

// TestNewAuthoritySecret тестирует разбор секрета
func TestNewAuthoritySecret(t *testing.T) {
	secret, err := GenerateSecureSecret()
	require.NoError(t, err)

	a, err := NewAuthority(secret)
	require.NoError(t, err)
	b, err := NewAuthority(secret)
	require.NoError(t, err)

	token, err := a.Issue("shared", 0)
	require.NoError(t, err)
	_, err = b.Validate(token)
	assert.NoError(t, err, "один секрет должен давать совместимые токены")

	_, err = NewAuthority("c2hvcnQ=") // "short"
	assert.Error(t, err)
	_, err = NewAuthority("%%%")
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret"))
}

func TestPasswordGate(t *testing.T) {
	a, err := NewAuthority("")
	require.NoError(t, err)
	hash, err := HashPassword("open-sesame")
	require.NoError(t, err)

	gate := NewPasswordGate(hash, a, time.Minute)
	token, err := gate.Exchange("alice", "open-sesame")
	require.NoError(t, err)

	claims, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Editor)

	_, err = gate.Exchange("alice", "wrong")
	assert.ErrorIs(t, err, ErrBadPassword)

	_, err = NewPasswordGate("", a, 0).Exchange("alice", "")
	assert.ErrorIs(t, err, ErrBadPassword, "без хеша обмен запрещён")
}
