// Package wallet loads the signing identities used by the flow.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
)

// ErrKeyMissing is returned when the named environment variable is empty.
var ErrKeyMissing = errors.New("private key not set")

// Signer is an account able to authorize transactions.
type Signer struct {
	Name    string
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// NewSigner wraps a private key and derives its address.
func NewSigner(name string, key *ecdsa.PrivateKey) *Signer {
	return &Signer{Name: name, Key: key, Address: crypto.PubkeyToAddress(key.PublicKey)}
}

// ParseSigner decodes a hex private key with or without the 0x prefix.
func ParseSigner(name, hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%s key: %w", name, err)
	}
	return NewSigner(name, key), nil
}

// LoadFromEnv reads the hex key stored in env. A .env file in the working
// directory is consulted first without overriding variables already set.
func LoadFromEnv(name, env string) (*Signer, error) {
	_ = godotenv.Load() // best-effort
	raw := os.Getenv(env)
	if raw == "" {
		return nil, fmt.Errorf("%s: %s: %w", name, env, ErrKeyMissing)
	}
	return ParseSigner(name, raw)
}

// LoadPair returns the owner (deployer, seller) and the buyer.
func LoadPair(ownerEnv, buyerEnv string) (owner, buyer *Signer, err error) {
	if owner, err = LoadFromEnv("owner", ownerEnv); err != nil {
		return nil, nil, err
	}
	if buyer, err = LoadFromEnv("buyer", buyerEnv); err != nil {
		return nil, nil, err
	}
	if owner.Address == buyer.Address {
		return nil, nil, fmt.Errorf("owner and buyer resolve to the same account %s", owner.Address.Hex())
	}
	return owner, buyer, nil
}
