package connectips

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"

	"github.com/mstgnz/gocips/provider"
	"software.sslmate.com/src/go-pkcs12"
)

// LoadPrivateKey unlocks a PKCS#12 bundle and returns its RSA signing key
// together with the certificate that carries the matching public key.
// Legacy (3DES, SHA-1 MAC) and PBES2 (AES, SHA-256 MAC) bundles are both read.
// Wrong passwords and malformed bundles yield InvalidCertificate.
func LoadPrivateKey(bundle []byte, password string) (*rsa.PrivateKey, *x509.Certificate, error) {
	if len(bundle) == 0 {
		return nil, nil, provider.Errorf(provider.KindCertificateNotFound, "certificate bundle is empty")
	}

	privateKey, cert, caCerts, err := pkcs12.DecodeChain(bundle, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, nil, provider.NewError(provider.KindInvalidCertificate, "incorrect certificate password", err)
		}
		return nil, nil, provider.NewError(provider.KindInvalidCertificate, "unreadable certificate bundle", err)
	}

	key, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, provider.Errorf(provider.KindInvalidCertificate, "certificate bundle key is not an RSA key")
	}

	// the chain may list a CA first; keep the certificate matching the key
	var leaf *x509.Certificate
	for _, c := range append([]*x509.Certificate{cert}, caCerts...) {
		if c == nil {
			continue
		}
		if pub, ok := c.PublicKey.(*rsa.PublicKey); ok && key.PublicKey.Equal(pub) {
			leaf = c
			break
		}
	}

	return key, leaf, nil
}

// SignMessage signs the UTF-8 bytes of message with RSA PKCS#1 v1.5 over SHA-256
// using the key held in the password-protected bundle. It returns raw signature bytes.
func SignMessage(message string, bundle []byte, password string) ([]byte, error) {
	key, _, err := LoadPrivateKey(bundle, password)
	if err != nil {
		return nil, err
	}
	return signWithKey(key, message)
}

func signWithKey(key *rsa.PrivateKey, message string) ([]byte, error) {
	digest := sha256.Sum256([]byte(message))
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, provider.NewError(provider.KindTokenGenerationFailed, "signing failed", err)
	}
	return signature, nil
}

// EncodeToken encodes a raw signature for transport
func EncodeToken(signature []byte) string {
	return base64.StdEncoding.EncodeToString(signature)
}

// VerifyToken checks a base64 token against message with the given public key
func VerifyToken(pub *rsa.PublicKey, message, token string) error {
	signature, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return err
	}
	digest := sha256.Sum256([]byte(message))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature)
}
