// Package tokens issues and parses the HS256 access and refresh tokens.
package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

var ErrUnexpectedMethod = errors.New("unexpected sign method")

type AccessClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	jwt.RegisteredClaims
}

type Issuer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Pepper        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	now func() time.Time
}

func (i *Issuer) clock() time.Time {
	if i.now != nil {
		return i.now()
	}
	return time.Now()
}

func (i *Issuer) CreateAccessToken(accountID string, roles []string) (string, time.Time, error) {
	now := i.clock()
	exp := now.Add(i.AccessTTL)
	claims := AccessClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return s, exp, nil
}

// RefreshToken is an issued refresh token together with what gets stored
// about it.
type RefreshToken struct {
	Token     string
	JTI       string
	Hash      string
	ExpiresAt time.Time
}

func (i *Issuer) CreateRefreshToken(accountID string) (*RefreshToken, error) {
	now := i.clock()
	exp := now.Add(i.RefreshTTL)
	jti := uuid.NewString()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &RefreshToken{Token: s, JTI: jti, Hash: i.Hash(s), ExpiresAt: exp}, nil
}

// Hash is the only form in which a refresh token is persisted.
func (i *Issuer) Hash(token string) string {
	sum := sha256.Sum256([]byte(token + i.Pepper))
	return hex.EncodeToString(sum[:])
}

func hs256(secret []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrUnexpectedMethod
		}
		return secret, nil
	}
}

func (i *Issuer) ParseAccess(token string) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(token, &claims, hs256(i.AccessSecret))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}

func (i *Issuer) ParseRefresh(token string) (*RefreshClaims, error) {
	var claims RefreshClaims
	tkn, err := jwt.ParseWithClaims(token, &claims, hs256(i.RefreshSecret))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid || claims.ID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}

func CreateCookie(name, value, path string, exp time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
