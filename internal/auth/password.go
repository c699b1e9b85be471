package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadPassword пароль редактора не подошёл
var ErrBadPassword = errors.New("неверный пароль")

// HashPassword возвращает bcrypt-хеш пароля с DefaultCost
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword сравнивает bcrypt-хеш с паролем
func CheckPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordGate обменивает пароль редактора на токен записи
type PasswordGate struct {
	hash      string
	authority *Authority
	ttl       time.Duration
}

// NewPasswordGate создаёт обменник. hash — bcrypt-хеш общего пароля редакторов.
func NewPasswordGate(hash string, authority *Authority, ttl time.Duration) *PasswordGate {
	return &PasswordGate{hash: hash, authority: authority, ttl: ttl}
}

// Exchange проверяет пароль и выпускает токен
func (g *PasswordGate) Exchange(editor, password string) (string, error) {
	if g.hash == "" || !CheckPassword(g.hash, password) {
		return "", ErrBadPassword
	}
	return g.authority.Issue(editor, g.ttl)
}
