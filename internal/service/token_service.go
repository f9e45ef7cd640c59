package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medvault/medvault/internal/domain"
	"github.com/medvault/medvault/pkg/auth"
)

var (
	ErrInvalidSecret  = errors.New("invalid registrar secret")
	ErrInvalidAddress = errors.New("a non-zero address is required")
	ErrInvalidRole    = errors.New("invalid role")
)

// TokenService mints caller tokens. It stands in for the substrate
// signer: whoever holds the registrar secret can bind an address to a
// token, after which the core trusts the token subject as the caller.
type TokenService struct {
	secretHash []byte
	jwtManager *auth.JWTManager
	log        *zap.Logger
}

func NewTokenService(registrarSecretHash string, jwtManager *auth.JWTManager, log *zap.Logger) *TokenService {
	return &TokenService{
		secretHash: []byte(registrarSecretHash),
		jwtManager: jwtManager,
		log:        log,
	}
}

func (s *TokenService) Issue(address domain.Address, role domain.Role, secret string) (*domain.TokenPair, error) {
	if len(s.secretHash) == 0 {
		return nil, ErrInvalidSecret
	}
	if err := bcrypt.CompareHashAndPassword(s.secretHash, []byte(secret)); err != nil {
		s.log.Warn("token mint rejected", zap.String("address", address.String()))
		return nil, ErrInvalidSecret
	}

	if address.IsZero() {
		return nil, ErrInvalidAddress
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	pair, err := s.jwtManager.GenerateTokenPair(&domain.Claims{Address: address, Role: role})
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.log.Info("token issued",
		zap.String("address", address.String()),
		zap.String("role", string(role)),
	)
	return pair, nil
}

// Refresh issues a new token pair given a valid refresh token.
func (s *TokenService) Refresh(refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidSecret
	}
	return s.jwtManager.GenerateTokenPair(claims)
}
