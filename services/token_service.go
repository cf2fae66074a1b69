package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Josevinuez/trade-in-api/config"
	jwt "github.com/golang-jwt/jwt/v5"
)

const orderTokenIssuer = "trade-in-api"

// ErrInvalidOrderToken is returned for any token that fails verification
var ErrInvalidOrderToken = errors.New("invalid order access token")

// OrderTokenClaims bind a token to one order and its customer of record
type OrderTokenClaims struct {
	OrderNumber string `json:"order_number"`
	Email       string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies order access tokens.
// The token is handed to the customer at submission and proves they own the order.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var tokenServiceInstance *TokenService

// NewTokenService creates a token service signing with an HS256 secret
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// InitTokenService initializes the token service from configuration
func InitTokenService(cfg *config.Config) *TokenService {
	tokenServiceInstance = NewTokenService(cfg.OrderTokenSecret, cfg.OrderTokenTTL)
	return tokenServiceInstance
}

// GetTokenService returns the initialized token service instance
func GetTokenService() *TokenService {
	return tokenServiceInstance
}

// SetTokenService sets the token service instance (primarily for testing)
func SetTokenService(service *TokenService) {
	tokenServiceInstance = service
}

// Issue signs a token for the order's customer
func (s *TokenService) Issue(orderNumber, email string) (string, error) {
	now := s.now()
	claims := OrderTokenClaims{
		OrderNumber: orderNumber,
		Email:       email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    orderTokenIssuer,
			Subject:   orderNumber,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign order token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its claims
func (s *TokenService) Parse(tokenStr string) (*OrderTokenClaims, error) {
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret is empty", ErrInvalidOrderToken)
	}

	claims := &OrderTokenClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithIssuer(orderTokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("token is not valid")
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrderToken, err)
	}
	if claims.OrderNumber == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidOrderToken)
	}
	return claims, nil
}
