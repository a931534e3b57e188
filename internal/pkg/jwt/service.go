package jwt

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const TokenTypeAccess = "access"

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims identify the calling gateway client.
type Claims struct {
	TokenType string `json:"token_type"`

	jwtlib.RegisteredClaims
}

type Service interface {
	GenerateAccessToken(subject string) (string, error)
	ValidateToken(tokenString string) (Claims, error)
}

type HMACService struct {
	accessSecret    []byte
	accessExpiresIn time.Duration

	now func() time.Time
}

func NewHMACService(accessSecret string, accessExpiresIn time.Duration) *HMACService {
	return &HMACService{
		accessSecret:    []byte(accessSecret),
		accessExpiresIn: accessExpiresIn,
		now:             time.Now,
	}
}

func (s *HMACService) GenerateAccessToken(subject string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || len(s.accessSecret) == 0 || s.accessExpiresIn <= 0 {
		return "", ErrTokenInvalid
	}

	now := s.now().UTC()
	c := Claims{
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.accessExpiresIn)),
			Subject:   subject,
		},
	}

	t := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c)
	return t.SignedString(s.accessSecret)
}

func (s *HMACService) ValidateToken(tokenString string) (Claims, error) {
	if len(s.accessSecret) == 0 {
		return Claims{}, ErrTokenInvalid
	}
	p := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.now),
		jwtlib.WithExpirationRequired(),
	)

	var c Claims
	tok, err := p.ParseWithClaims(tokenString, &c, func(token *jwtlib.Token) (any, error) {
		return s.accessSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if tok == nil || !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}
	if c.TokenType != TokenTypeAccess || strings.TrimSpace(c.Subject) == "" {
		return Claims{}, ErrTokenInvalid
	}

	return c, nil
}
