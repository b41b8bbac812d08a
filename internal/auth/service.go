package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-profile-admin/pkg/utilities"
)

// RefreshStore persists refresh sessions; *repo.RefreshRepo satisfies it.
type RefreshStore interface {
	Save(ctx context.Context, digest string, row repo.RefreshRow) error
	Get(ctx context.Context, digest string) (*repo.RefreshRow, error)
	Delete(ctx context.Context, digest string) (bool, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidRefresh = errors.New("invalid refresh token")
)

// Claims are the access token claims. V mirrors users.version so a version
// bump invalidates every token issued before it.
type Claims struct {
	Version int64  `json:"v"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Tokens is the pair returned on login and refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenService manages the signing key, token issuance and refresh sessions.
type TokenService struct {
	key        *rsa.PrivateKey
	kid        string
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	refresh    RefreshStore
	now        func() time.Time
}

// NewTokenService loads the signing key from cfg.KeyFile, or generates an
// ephemeral one when no file is configured.
func NewTokenService(db *sqlx.DB, store RefreshStore, cfg Config) (*TokenService, error) {
	k, err := loadKey(cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = repo.NewRefreshRepo(db)
	}
	pub, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(pub)
	return &TokenService{
		key:        k,
		kid:        base64.RawURLEncoding.EncodeToString(h[:8]),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		refresh:    store,
		now:        time.Now,
	}, nil
}

func loadKey(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		return rsa.GenerateKey(rand.Reader, 2048)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	k, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return k, nil
}

// JWKS returns a minimal JWKS containing the public key.
func (s *TokenService) JWKS() map[string]any {
	pub := s.key.PublicKey
	jwk := map[string]any{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": s.kid,
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		// encode exponent using big.Int to get minimal big-endian bytes
		"e": base64.RawURLEncoding.EncodeToString(new(big.Int).SetInt64(int64(pub.E)).Bytes()),
	}
	return map[string]any{"keys": []any{jwk}}
}

// IssueTokens signs an access token for the account and persists a new refresh session.
func (s *TokenService) IssueTokens(ctx context.Context, u *entity.MinimalAuthView, clientID string) (*Tokens, error) {
	now := s.now()
	claims := Claims{
		Version: u.Version,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if clientID != "" {
		claims.Audience = jwt.ClaimStrings{clientID}
	}
	if u.Email != nil {
		claims.Email = *u.Email
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.kid
	access, err := tok.SignedString(s.key)
	if err != nil {
		return nil, err
	}

	rtBytes := make([]byte, 32)
	if _, err := rand.Read(rtBytes); err != nil {
		return nil, err
	}
	refresh := base64.RawURLEncoding.EncodeToString(rtBytes)
	row := repo.RefreshRow{
		ID:        utilities.NewSnowflakeID(),
		UserID:    u.ID,
		ClientID:  clientID,
		Version:   u.Version,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.refresh.Save(ctx, digest(refresh), row); err != nil {
		return nil, err
	}
	return &Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL / time.Second),
	}, nil
}

// ParseAccess verifies signature, issuer and expiry of an access token.
func (s *TokenService) ParseAccess(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return &s.key.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefreshToken checks an opaque refresh token and returns the session if valid.
func (s *TokenService) ValidateRefreshToken(ctx context.Context, token string) (*repo.RefreshRow, error) {
	if token == "" {
		return nil, ErrInvalidRefresh
	}
	row, err := s.refresh.Get(ctx, digest(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if row.ExpiresAt.Before(s.now()) {
		return nil, ErrInvalidRefresh
	}
	return row, nil
}

// RevokeRefreshToken removes a refresh token from the store.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, token string) error {
	ok, err := s.refresh.Delete(ctx, digest(token))
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidRefresh
	}
	return nil
}

// RevokeUserSessions drops every refresh session of the account.
func (s *TokenService) RevokeUserSessions(ctx context.Context, userID string) error {
	_, err := s.refresh.DeleteByUser(ctx, userID)
	return err
}

// PruneExpired deletes refresh sessions past their expiry.
func (s *TokenService) PruneExpired(ctx context.Context) (int64, error) {
	return s.refresh.DeleteExpired(ctx, s.now())
}

func digest(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
