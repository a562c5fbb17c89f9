package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrKeyMaterialMissing is returned when neither inline PEM nor a path is set.
var ErrKeyMaterialMissing = errors.New("key material missing")

type keyPair struct {
	sign   interface{}
	verify interface{}
}

// LoadKey returns inline when non-blank, otherwise the contents of path.
// Inline values may carry literal "\n" sequences, as environment variables often do.
func LoadKey(inline, path string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(strings.ReplaceAll(inline, `\n`, "\n")), nil
	}
	if strings.TrimSpace(path) == "" {
		return nil, ErrKeyMaterialMissing
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", path, err)
	}
	return b, nil
}

// GenerateRSAKeyPEM creates a fresh RSA key pair, PKCS#8 private and PKIX public.
func GenerateRSAKeyPEM(bits int) (privatePEM, publicPEM []byte, err error) {
	if bits < 2048 {
		return nil, nil, errors.New("rsa key size must be at least 2048 bits")
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM, nil
}

// parseKeyPair accepts a verify-only configuration (no private key); sign fails later.
func parseKeyPair(method SigningMethod, private, public []byte) (keyPair, error) {
	var kp keyPair
	switch method {
	case MethodHS256:
		if len(private) == 0 {
			return kp, errors.New("hs256 requires private key")
		}
		kp.sign, kp.verify = private, private
		return kp, nil

	case MethodRS256, MethodRS384, MethodRS512:
		if len(public) == 0 {
			return kp, errors.New("rsa requires public key")
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM(public)
		if err != nil {
			return kp, fmt.Errorf("invalid rsa public key: %w", err)
		}
		kp.verify = pub
		if len(private) > 0 {
			priv, err := jwt.ParseRSAPrivateKeyFromPEM(private)
			if err != nil {
				return kp, fmt.Errorf("invalid rsa private key: %w", err)
			}
			if priv.PublicKey.N.Cmp(pub.N) != 0 {
				return kp, errors.New("rsa private and public keys do not match")
			}
			kp.sign = priv
		}
		return kp, nil

	case MethodES256:
		if len(public) == 0 {
			return kp, errors.New("es256 requires public key")
		}
		pub, err := jwt.ParseECPublicKeyFromPEM(public)
		if err != nil {
			return kp, fmt.Errorf("invalid ecdsa public key: %w", err)
		}
		kp.verify = pub
		if len(private) > 0 {
			priv, err := jwt.ParseECPrivateKeyFromPEM(private)
			if err != nil {
				return kp, fmt.Errorf("invalid ecdsa private key: %w", err)
			}
			kp.sign = priv
		}
		return kp, nil

	case MethodEd25519:
		if len(public) == 0 {
			return kp, errors.New("ed25519 requires public key")
		}
		pub, err := parseEdPublicKey(public)
		if err != nil {
			return kp, err
		}
		kp.verify = pub
		if len(private) > 0 {
			priv, err := parseEdPrivateKey(private)
			if err != nil {
				return kp, err
			}
			kp.sign = priv
		}
		return kp, nil
	}
	return kp, errors.New("unsupported signing method")
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
