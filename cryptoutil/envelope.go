package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/byteness/toolgateway/gatewayerr"
)

// ivSize is the AES block size used as the CBC initialization vector length.
const ivSize = 16

// GenerateKeypair creates a 2048-bit RSA keypair for agent identity. The public
// key is returned PEM/SPKI-encoded for storage on the Agent record; the private key is
// returned PEM/PKCS8-encoded and must be handed to the caller exactly once and never
// persisted by the gateway.
func GenerateKeypair() (publicPEM, privatePEM []byte, err error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("cryptoutil: generate keypair: %w", err)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("cryptoutil: marshal public key: %w", err)
	}
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("cryptoutil: marshal private key: %w", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})

	return publicPEM, privatePEM, nil
}

// ParsePublicKey decodes a PEM/SPKI-encoded RSA public key.
func ParsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, gatewayerr.New(gatewayerr.CryptoDecrypt, "invalid PEM block for public key")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "parse public key", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, gatewayerr.New(gatewayerr.CryptoDecrypt, "public key is not RSA")
	}
	return rsaKey, nil
}

// ParsePrivateKey decodes a PEM/PKCS8-encoded RSA private key.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, gatewayerr.New(gatewayerr.CryptoDecrypt, "invalid PEM block for private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "parse private key", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, gatewayerr.New(gatewayerr.CryptoDecrypt, "private key is not RSA")
	}
	return rsaKey, nil
}

// HybridEncrypt implements the following layout:
//
//	RSA_OAEP(pubkey, aes_key) || iv(16B) || AES-256-CBC(aes_key, iv, plaintext)
//
// base64-encoded at the boundary. plaintext is PKCS#7 padded before CBC encryption.
func HybridEncrypt(plaintext []byte, pub *rsa.PublicKey) (string, error) {
	aesKey := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, aesKey); err != nil {
		return "", fmt.Errorf("cryptoutil: read aes key: %w", err)
	}

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, aesKey, nil)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: wrap aes key: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("cryptoutil: read iv: %w", err)
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new aes cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	out := make([]byte, 0, len(wrappedKey)+len(iv)+len(ciphertext))
	out = append(out, wrappedKey...)
	out = append(out, iv...)
	out = append(out, ciphertext...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// HybridDecrypt reverses HybridEncrypt. Any length, padding, or unwrap failure surfaces as
// gatewayerr.CryptoDecrypt — never a raw crypto-library error, to avoid oracle
// leakage through distinguishable error messages.
func HybridDecrypt(encoded string, priv *rsa.PrivateKey) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "invalid base64 envelope", err)
	}

	keySize := priv.PublicKey.Size()
	if len(blob) < keySize+ivSize {
		return nil, gatewayerr.New(gatewayerr.CryptoDecrypt, "envelope too short")
	}

	wrappedKey := blob[:keySize]
	iv := blob[keySize : keySize+ivSize]
	ciphertext := blob[keySize+ivSize:]

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, gatewayerr.New(gatewayerr.CryptoDecrypt, "ciphertext not block-aligned")
	}

	aesKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrappedKey, nil)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "unwrap aes key", err)
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "new aes cipher", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "unpad plaintext", err)
	}
	return plaintext, nil
}

// SymmetricSeal encrypts plaintext under key (any 16/24/32-byte AES key, e.g. a vault KEK)
// using AES-GCM, returning base64(nonce || ciphertext-with-tag). Unlike HybridEncrypt this
// carries no wrapped key of its own — the key is supplied out of band (the KEK).
func SymmetricSeal(plaintext, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("cryptoutil: read nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// SymmetricOpen reverses SymmetricSeal. Any failure surfaces as gatewayerr.CryptoDecrypt.
func SymmetricOpen(encoded string, key []byte) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "invalid base64 envelope", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "new aes cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "new gcm", err)
	}
	if len(blob) < gcm.NonceSize() {
		return nil, gatewayerr.New(gatewayerr.CryptoDecrypt, "envelope too short")
	}
	nonce, ciphertext := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "open sealed envelope", err)
	}
	return plaintext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("cryptoutil: invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("cryptoutil: invalid padding length %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("cryptoutil: invalid padding bytes")
		}
	}
	return data[:len(data)-padLen], nil
}
