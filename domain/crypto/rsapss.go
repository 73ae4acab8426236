package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"

	"github.com/pkg/errors"
)

// SignPSS signs the SHA-256 digest of message with key using RSA-PSS with
// a SHA-256 MGF.
func SignPSS(key *rsa.PrivateKey, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash: crypto.SHA256,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return sig, nil
}

// VerifyPSS verifies an RSA-PSS/SHA-256 signature over message against
// the given public key.
func VerifyPSS(pub *rsa.PublicKey, message, signature []byte) error {
	digest := sha256.Sum256(message)
	err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], signature, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash: crypto.SHA256,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}
