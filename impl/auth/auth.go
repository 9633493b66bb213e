// Package auth checks the admin password and issues admin session tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"codegate/entity"
	"codegate/lib/clock"
)

const (
	Subject = "admin"
	issuer  = "codegate"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid session token")
)

type Options struct {
	// Password is used only when PasswordHash is empty
	Password     string
	PasswordHash string
	Secret       string
	TTL          time.Duration
}

type sessionClaims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

type Auth struct {
	password []byte
	hash     []byte
	secret   []byte
	ttl      time.Duration
	clock    clock.Clock
}

func New(opts Options, clk clock.Clock) (*Auth, error) {
	if opts.Secret == "" {
		return nil, fmt.Errorf("auth: signing secret is empty")
	}
	if opts.Password == "" && opts.PasswordHash == "" {
		return nil, fmt.Errorf("auth: no admin password configured")
	}
	if opts.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(opts.PasswordHash)); err != nil {
			return nil, fmt.Errorf("auth: password hash: %w", err)
		}
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Auth{
		password: []byte(opts.Password),
		hash:     []byte(opts.PasswordHash),
		secret:   []byte(opts.Secret),
		ttl:      opts.TTL,
		clock:    clk,
	}, nil
}

func (a *Auth) CheckPassword(password string) error {
	if len(a.hash) > 0 {
		if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
			return ErrInvalidPassword
		}
		return nil
	}
	if subtle.ConstantTimeCompare(a.password, []byte(password)) != 1 {
		return ErrInvalidPassword
	}
	return nil
}

// Issue signs a new admin session token valid for the configured TTL.
func (a *Auth) Issue() (*entity.LoginResult, error) {
	now := a.clock.Now()
	expires := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &entity.LoginResult{Token: signed, ExpiresAt: expires.Truncate(time.Second)}, nil
}

func (a *Auth) Verify(raw string) (*entity.AdminSession, error) {
	parsed, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || !claims.IsAdmin {
		return nil, ErrInvalidToken
	}
	session := &entity.AdminSession{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return session, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
