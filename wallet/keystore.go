// Package wallet provides key management and transaction signing helpers.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/tolelom/purgeledger/crypto"
)

const (
	keystoreVersion = 1
	kdfPBKDF2       = "pbkdf2-sha256"
	kdfIterations   = 210_000
	saltSize        = 16
)

// Keystore errors.
var (
	ErrWrongPassword    = errors.New("wrong password or corrupted keystore")
	ErrKeystoreMismatch = errors.New("keystore pub_key does not match the decrypted key")
	ErrKeystoreFormat   = errors.New("unsupported keystore format")
)

// keystoreFile is the on-disk JSON layout. The public key is bound to the
// ciphertext as AEAD additional data, so swapping it breaks decryption.
type keystoreFile struct {
	Version    int    `json:"version"`
	KDF        string `json:"kdf"`
	Iterations int    `json:"iterations"`
	PubKey     string `json:"pub_key"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipher_text"`
}

// aead derives the AES-256-GCM key for password with the file's KDF
// parameters.
func (ks *keystoreFile) aead(password string, salt []byte) (cipher.AEAD, error) {
	if ks.KDF != kdfPBKDF2 || ks.Iterations <= 0 {
		return nil, fmt.Errorf("%w: kdf %q, %d iterations", ErrKeystoreFormat, ks.KDF, ks.Iterations)
	}
	key := pbkdf2.Key([]byte(password), salt, ks.Iterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// SaveKey encrypts priv under password and writes the keystore to path
// with owner-only permissions.
func SaveKey(path, password string, priv crypto.PrivateKey) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	ks := keystoreFile{
		Version:    keystoreVersion,
		KDF:        kdfPBKDF2,
		Iterations: kdfIterations,
		PubKey:     priv.Public().Hex(),
		Salt:       hex.EncodeToString(salt),
	}
	gcm, err := ks.aead(password, salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	ks.Nonce = hex.EncodeToString(nonce)
	ks.CipherText = hex.EncodeToString(gcm.Seal(nil, nonce, priv, []byte(ks.PubKey)))

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadKey decrypts the keystore at path using password.
func LoadKey(path, password string) (crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("keystore %s: %w", path, err)
	}
	if ks.Version != keystoreVersion {
		return nil, fmt.Errorf("%w: version %d", ErrKeystoreFormat, ks.Version)
	}

	var salt, nonce, cipherText []byte
	for _, f := range []struct {
		dst *[]byte
		hex string
	}{{&salt, ks.Salt}, {&nonce, ks.Nonce}, {&cipherText, ks.CipherText}} {
		if *f.dst, err = hex.DecodeString(f.hex); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeystoreFormat, err)
		}
	}

	gcm, err := ks.aead(password, salt)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: nonce size %d", ErrKeystoreFormat, len(nonce))
	}
	privBytes, err := gcm.Open(nil, nonce, cipherText, []byte(ks.PubKey))
	if err != nil {
		return nil, ErrWrongPassword
	}
	priv := crypto.PrivateKey(privBytes)
	if priv.Public().Hex() != ks.PubKey {
		return nil, fmt.Errorf("keystore %s: %w", path, ErrKeystoreMismatch)
	}
	return priv, nil
}

// ImportKey stores a hex private key in an encrypted keystore at path and
// returns the wallet for it.
func ImportKey(path, password, privHex string) (*Wallet, error) {
	priv, err := crypto.PrivKeyFromHex(privHex)
	if err != nil {
		return nil, err
	}
	if err := SaveKey(path, password, priv); err != nil {
		return nil, err
	}
	return New(priv), nil
}

// Open loads the keystore at path into a Wallet.
func Open(path, password string) (*Wallet, error) {
	priv, err := LoadKey(path, password)
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}
