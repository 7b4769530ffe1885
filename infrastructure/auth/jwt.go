/*
Package auth 会话令牌与密码哈希

TokenManager 使用 HS256 签发与校验令牌，实现 account.TokenIssuer 与
account.TokenVerifier；BcryptHasher 实现 account.PasswordHasher。
*/
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"orderflow/config"
	"orderflow/domain/account"

	"github.com/dgrijalva/jwt-go"
)

// SessionClaims 令牌载荷
type SessionClaims struct {
	AccountID int64  `json:"accountId"`
	Role      string `json:"role"`
	jwt.StandardClaims
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// FromAppConfig builds the manager from the auth section
func FromAppConfig(cfg config.AuthConfig) *TokenManager {
	return NewTokenManager(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL)
}

// WithClock overrides the clock used for issuing and expiry checks
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

func (m *TokenManager) Issue(claims account.Claims) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		AccountID: claims.AccountID,
		Role:      claims.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(claims.AccountID, 10),
			Issuer:    m.issuer,
			IssuedAt:  issuedAt.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (m *TokenManager) Verify(raw string) (account.Claims, error) {
	if raw == "" {
		return account.Claims{}, account.NewInvalidTokenError("token is empty")
	}

	parser := jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorMalformed != 0 {
			return account.Claims{}, account.NewInvalidTokenError("malformed token")
		}
		return account.Claims{}, account.NewInvalidTokenError(err.Error())
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return account.Claims{}, account.NewInvalidTokenError("token is invalid")
	}
	// 使用注入的时钟校验过期时间
	now := m.now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return account.Claims{}, account.NewInvalidTokenError("token is expired")
	}
	if m.issuer != "" && !claims.VerifyIssuer(m.issuer, true) {
		return account.Claims{}, account.NewInvalidTokenError("unexpected issuer")
	}
	if claims.AccountID <= 0 {
		return account.Claims{}, account.NewInvalidTokenError("token has no account")
	}
	return account.Claims{AccountID: claims.AccountID, Role: claims.Role}, nil
}

var (
	_ account.TokenIssuer   = (*TokenManager)(nil)
	_ account.TokenVerifier = (*TokenManager)(nil)
)
