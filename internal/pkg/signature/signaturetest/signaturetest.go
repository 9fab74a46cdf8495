// Package signaturetest produces channel keys and raw r‖s signatures for tests.
package signaturetest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"claim-comments/internal/domain"
)

type Channel struct {
	Key     *ecdsa.PrivateKey
	ClaimID string
	Name    string
}

func NewChannel(t testing.TB, claimID, name string) *Channel {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return &Channel{Key: key, ClaimID: claimID, Name: name}
}

// Claim is what the resolver would return for this channel.
func (c *Channel) Claim(t testing.TB) *domain.Claim {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&c.Key.PublicKey)
	require.NoError(t, err)
	return &domain.Claim{ClaimID: c.ClaimID, Name: c.Name, PublicKey: der}
}

// PublicKeyHex is the key as it appears in a resolve response.
func (c *Channel) PublicKeyHex(t testing.TB) string {
	return hex.EncodeToString(c.Claim(t).PublicKey)
}

// Sign returns the raw fixed-width hex r‖s signature of commentID.
func (c *Channel) Sign(t testing.TB, commentID string) string {
	t.Helper()
	claimHash, err := hex.DecodeString(c.ClaimID)
	require.NoError(t, err)
	slices.Reverse(claimHash)
	digest := sha256.Sum256(append([]byte(commentID), claimHash...))

	r, s, err := ecdsa.Sign(rand.Reader, c.Key, digest[:])
	require.NoError(t, err)

	raw := make([]byte, 64)
	r.FillBytes(raw[:32])
	s.FillBytes(raw[32:])
	return hex.EncodeToString(raw)
}
