// Package signature verifies detached channel signatures on comments.
//
// Signatures arrive as a hex string holding the raw concatenation r‖s. The
// string is split exactly in half, re-encoded as a DER ECDSA-Sig-Value and
// checked against sha256(comment_id ‖ reversed claim hash) with the
// channel's P-256 public key. The digest is used as-is (pre-hashed).
package signature

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"claim-comments/internal/domain"
)

var (
	errEmptySignature = errors.New("empty signature")
	errNotP256        = errors.New("public key is not an ECDSA P-256 key")
	errInvalid        = errors.New("signature does not verify")
)

type Verifier struct {
	log *zap.Logger
}

func NewVerifier(log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{log: log.Named("signature")}
}

// Verify reports whether signatureHex is a valid signature of commentID by
// the key of claim. Every failure is logged at debug level and reported as
// false.
func (v *Verifier) Verify(commentID, signatureHex string, claim *domain.Claim) bool {
	if err := verify(commentID, signatureHex, claim); err != nil {
		v.log.Debug("signature validation failed",
			zap.String("comment_id", commentID),
			zap.Error(err))
		return false
	}
	return true
}

func verify(commentID, signatureHex string, claim *domain.Claim) error {
	if claim == nil {
		return errors.New("no claim")
	}
	der, err := EncodeDER(signatureHex)
	if err != nil {
		return err
	}
	digest, err := Digest(commentID, claim.ClaimID)
	if err != nil {
		return err
	}
	pub, err := ParsePublicKey(claim.PublicKey)
	if err != nil {
		return err
	}
	if !ecdsa.VerifyASN1(pub, digest, der) {
		return errInvalid
	}
	return nil
}

// BitLength is the width the raw signature claims for r and s together.
func BitLength(signatureHex string) int {
	return len(signatureHex) * 4
}

// EncodeDER splits a raw hex r‖s signature in half and encodes it as
// SEQUENCE { INTEGER r, INTEGER s }.
func EncodeDER(signatureHex string) ([]byte, error) {
	if signatureHex == "" {
		return nil, errEmptySignature
	}
	half := len(signatureHex) / 2
	r, ok := new(big.Int).SetString(signatureHex[:half], 16)
	if !ok {
		return nil, fmt.Errorf("invalid r component %q", signatureHex[:half])
	}
	s, ok := new(big.Int).SetString(signatureHex[half:], 16)
	if !ok {
		return nil, fmt.Errorf("invalid s component %q", signatureHex[half:])
	}
	if bits := BitLength(signatureHex); r.BitLen()+s.BitLen() > bits {
		return nil, fmt.Errorf("signature components exceed %d bits", bits)
	}

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	return b.Bytes()
}

// Digest computes sha256(commentID ‖ reverse(unhex(claimIDHex))).
func Digest(commentID, claimIDHex string) ([]byte, error) {
	claimHash, err := hex.DecodeString(claimIDHex)
	if err != nil {
		return nil, fmt.Errorf("decode claim id: %w", err)
	}
	slices.Reverse(claimHash)

	h := sha256.New()
	h.Write([]byte(commentID))
	h.Write(claimHash)
	return h.Sum(nil), nil
}

// ParsePublicKey loads a DER (PKIX) encoded P-256 public key.
func ParsePublicKey(der []byte) (*ecdsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, errNotP256
	}
	return pub, nil
}
