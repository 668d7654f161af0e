package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/go-bip39"
	"golang.org/x/crypto/scrypt"
)

const (
	// CoinType is the BIP44 coin type the feeder derives its key with.
	CoinType = 330

	minPassphraseLen = 8

	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// file is the on-disk keystore format. The mnemonic is sealed with
// AES-256-GCM under a scrypt-derived key.
type file struct {
	Address    string `json:"address"`
	KDF        string `json:"kdf"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Create validates the mnemonic, encrypts it under the passphrase and writes
// the keystore file. It returns the derived feeder account address.
func Create(path, passphrase, mnemonic string) (sdk.AccAddress, error) {
	if len(passphrase) < minPassphraseLen {
		return nil, ErrPassphraseTooShort
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	priv, err := DeriveKey(mnemonic)
	if err != nil {
		return nil, err
	}
	addr := sdk.AccAddress(priv.PubKey().Address())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate kdf salt: %w", err)
	}

	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, []byte(mnemonic), nil)

	blob, err := json.MarshalIndent(file{
		Address:    addr.String(),
		KDF:        "scrypt",
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode keystore: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write keystore: %w", err)
	}

	return addr, nil
}

// Load decrypts the keystore and re-derives the signing key. A wrong
// passphrase is indistinguishable from a corrupted file.
func Load(path, passphrase string) (*secp256k1.PrivKey, error) {
	blob, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	var f file
	if err := json.Unmarshal(blob, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKeystore, err)
	}

	salt, err := base64.StdEncoding.DecodeString(f.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt", ErrMalformedKeystore)
	}
	nonce, err := base64.StdEncoding.DecodeString(f.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: bad nonce", ErrMalformedKeystore)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(f.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext", ErrMalformedKeystore)
	}

	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	mnemonic, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}

	return DeriveKey(string(mnemonic))
}

// DeriveKey derives the feeder's secp256k1 key from a mnemonic at
// m/44'/330'/0'/0/0.
func DeriveKey(mnemonic string) (*secp256k1.PrivKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	master, ch := hd.ComputeMastersFromSeed(seed)

	hdPath := fmt.Sprintf("m/44'/%d'/0'/0/0", CoinType)
	priv, err := hd.DerivePrivateKeyForPath(master, ch, hdPath)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return &secp256k1.PrivKey{Key: priv}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return gcm, nil
}
