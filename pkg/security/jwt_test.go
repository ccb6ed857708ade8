package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTManagerValidates(t *testing.T) {
	_, err := NewJWTManager(&JWTConfig{})
	assert.ErrorIs(t, err, ErrSecretKeyEmpty)

	_, err = NewJWTManager(&JWTConfig{SecretKey: "k", Algorithm: "XX999"})
	assert.ErrorIs(t, err, ErrAlgorithmInvalid)

	_, err = NewJWTManager(&JWTConfig{Algorithm: "ES256", PublicKeyFile: "/nonexistent.pem"})
	assert.ErrorIs(t, err, ErrPublicKeyLoad)

	assert.False(t, (*JWTConfig)(nil).Enabled())
	assert.True(t, (&JWTConfig{SecretKey: "k"}).Enabled())
}

func TestGenerateAndValidate(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m, err := NewJWTManager(&JWTConfig{SecretKey: "secret", Issuer: "monster", ExpiresIn: time.Hour}, WithJWTClock(clock))
	require.NoError(t, err)

	token, err := m.GenerateToken("ops", "admin")
	require.NoError(t, err)

	claims, err := m.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, "monster", claims.Issuer)
	assert.True(t, claims.HasRole("admin"))
	assert.False(t, claims.HasRole("viewer"))

	clock.Advance(time.Hour + time.Second)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateRejects(t *testing.T) {
	m, err := NewJWTManager(&JWTConfig{SecretKey: "secret"})
	require.NoError(t, err)
	other, err := NewJWTManager(&JWTConfig{SecretKey: "other"})
	require.NoError(t, err)

	_, err = m.ValidateToken("")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	forged, err := other.GenerateToken("ops")
	require.NoError(t, err)
	_, err = m.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	hs512, err := NewJWTManager(&JWTConfig{SecretKey: "secret", Algorithm: "HS512"})
	require.NoError(t, err)
	token, err := hs512.GenerateToken("ops")
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func writePEM(t *testing.T, dir, name, typ string, der []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der}), 0o600))
	return path
}

func TestECDSAKeys(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	privDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	dir := t.TempDir()
	priv := writePEM(t, dir, "key.pem", "EC PRIVATE KEY", privDER)
	pub := writePEM(t, dir, "pub.pem", "PUBLIC KEY", pubDER)

	signer, err := NewJWTManager(&JWTConfig{Algorithm: "ES256", PrivateKeyFile: priv, PublicKeyFile: pub})
	require.NoError(t, err)
	token, err := signer.GenerateToken("ops")
	require.NoError(t, err)

	verifier, err := NewJWTManager(&JWTConfig{Algorithm: "ES256", PublicKeyFile: pub})
	require.NoError(t, err)
	claims, err := verifier.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)

	_, err = verifier.GenerateToken("ops")
	assert.ErrorIs(t, err, ErrSigningKeyMissing)
}
