package session

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-email-auth/internal/config"
	"github.com/go-email-auth/internal/domain"
	jwtinfra "github.com/go-email-auth/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRedeemer struct{ mock.Mock }

func (m *mockRedeemer) Redeem(ctx context.Context, email, code string) (bool, error) {
	args := m.Called(ctx, email, code)
	return args.Bool(0), args.Error(1)
}

// newTestProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
	})
	require.NoError(t, err)
	return p
}

// --- Create ---

func TestCreate_ValidCode_MintsGuestSession(t *testing.T) {
	p := newTestProvider(t)
	rd := &mockRedeemer{}
	rd.On("Redeem", mock.Anything, "a@b.com", "code-1").Return(true, nil)

	svc := NewService(rd, p, 20*time.Minute, 20*time.Minute)
	token, err := svc.Create(context.Background(), "a@b.com", "code-1")

	require.NoError(t, err)
	claims, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, RoleGuest, claims.Role)
	assert.Equal(t, "code-1", claims.Code)

	// the sliding deadline never outlives the absolute cap
	abs := time.Unix(claims.AbsoluteExpiry, 0)
	assert.False(t, claims.ExpiresAt.Time.After(abs.Add(time.Second)))
	assert.WithinDuration(t, time.Now().Add(20*time.Minute), abs, time.Minute)
}

func TestCreate_InvalidCode_Unauthorized(t *testing.T) {
	rd := &mockRedeemer{}
	rd.On("Redeem", mock.Anything, "a@b.com", "wrong").Return(false, nil)

	svc := NewService(rd, newTestProvider(t), 20*time.Minute, 20*time.Minute)
	_, err := svc.Create(context.Background(), "a@b.com", "wrong")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestCreate_StoreFailure_Propagates(t *testing.T) {
	rd := &mockRedeemer{}
	rd.On("Redeem", mock.Anything, mock.Anything, mock.Anything).Return(false, domain.ErrStorage)

	svc := NewService(rd, newTestProvider(t), 20*time.Minute, 20*time.Minute)
	_, err := svc.Create(context.Background(), "a@b.com", "code-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

// --- Validate ---

func TestValidate_ActiveSession(t *testing.T) {
	p := newTestProvider(t)
	rd := &mockRedeemer{}
	rd.On("Redeem", mock.Anything, "a@b.com", "code-1").Return(true, nil)

	svc := NewService(rd, p, 20*time.Minute, 20*time.Minute)
	token, err := svc.Create(context.Background(), "a@b.com", "code-1")
	require.NoError(t, err)

	claims, refreshed, err := svc.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Email)
	// a fresh token is nowhere near half the sliding window: no renewal
	assert.Empty(t, refreshed)
}

func TestValidate_GarbageToken_Unauthorized(t *testing.T) {
	svc := NewService(&mockRedeemer{}, newTestProvider(t), 20*time.Minute, 20*time.Minute)
	_, _, err := svc.Validate(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestValidate_CodeInvalidated_RevokesSession(t *testing.T) {
	p := newTestProvider(t)
	rd := &mockRedeemer{}
	rd.On("Redeem", mock.Anything, "a@b.com", "code-1").Return(true, nil).Once()
	// the backing record was invalidated (or superseded) after issuance
	rd.On("Redeem", mock.Anything, "a@b.com", "code-1").Return(false, nil)

	svc := NewService(rd, p, 20*time.Minute, 20*time.Minute)
	token, err := svc.Create(context.Background(), "a@b.com", "code-1")
	require.NoError(t, err)

	_, _, err = svc.Validate(context.Background(), token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestValidate_PastAbsoluteExpiry_Unauthorized(t *testing.T) {
	p := newTestProvider(t)
	rd := &mockRedeemer{}

	// sliding deadline still ahead, absolute cap already behind
	now := time.Now().UTC()
	token, err := p.Sign("a@b.com", RoleGuest, "code-1", now.Add(10*time.Minute), now.Add(-time.Minute))
	require.NoError(t, err)

	svc := NewService(rd, p, 20*time.Minute, 20*time.Minute)
	_, _, err = svc.Validate(context.Background(), token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	rd.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidate_SlidingWindowHalfElapsed_RefreshesToken(t *testing.T) {
	p := newTestProvider(t)
	rd := &mockRedeemer{}
	rd.On("Redeem", mock.Anything, "a@b.com", "code-1").Return(true, nil)

	now := time.Now().UTC()
	abs := now.Add(15 * time.Minute)
	token, err := p.Sign("a@b.com", RoleGuest, "code-1", now.Add(time.Minute), abs)
	require.NoError(t, err)

	svc := NewService(rd, p, 20*time.Minute, 20*time.Minute)
	claims, refreshed, err := svc.Validate(context.Background(), token)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed)

	newClaims, err := p.Verify(refreshed)
	require.NoError(t, err)
	assert.Equal(t, claims.Email, newClaims.Email)
	assert.Equal(t, claims.Code, newClaims.Code)
	// renewal keeps the original absolute cap
	assert.Equal(t, claims.AbsoluteExpiry, newClaims.AbsoluteExpiry)
	// the refreshed sliding deadline is capped at the absolute expiry
	assert.False(t, newClaims.ExpiresAt.Time.After(abs.Add(time.Second)))
	assert.True(t, newClaims.ExpiresAt.Time.After(now.Add(10*time.Minute)))
}
