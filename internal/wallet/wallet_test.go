package wallet

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Well-known keys of the first two accounts of a default local dev node.
const (
	devKey0 = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devKey1 = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

func TestLoadFromEnv(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	t.Setenv("TEST_WALLET_KEY", hexutil.Encode(crypto.FromECDSA(key)))

	signer, err := LoadFromEnv("owner", "TEST_WALLET_KEY")
	if err != nil {
		t.Fatalf("expected key, got error: %v", err)
	}
	if signer.Address != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatalf("expected address %s, got %s", crypto.PubkeyToAddress(key.PublicKey), signer.Address)
	}
	if signer.Name != "owner" {
		t.Fatalf("unexpected signer name %s", signer.Name)
	}
}

func TestLoadFromEnvMissing(t *testing.T) {
	t.Setenv("TEST_WALLET_MISSING", "")
	_, err := LoadFromEnv("owner", "TEST_WALLET_MISSING")
	if !errors.Is(err, ErrKeyMissing) {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}
}

func TestParseSignerKnownAddress(t *testing.T) {
	signer, err := ParseSigner("owner", devKey0)
	if err != nil {
		t.Fatalf("ParseSigner error: %v", err)
	}
	want := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	if signer.Address != want {
		t.Fatalf("expected %s, got %s", want, signer.Address)
	}
	if _, err := ParseSigner("owner", "zz"); err == nil {
		t.Fatalf("expected error for malformed key")
	}
}

func TestLoadPair(t *testing.T) {
	t.Setenv("TEST_OWNER", devKey0)
	t.Setenv("TEST_BUYER", devKey1)
	owner, buyer, err := LoadPair("TEST_OWNER", "TEST_BUYER")
	if err != nil {
		t.Fatalf("LoadPair error: %v", err)
	}
	if buyer.Address != common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8") {
		t.Fatalf("unexpected buyer address %s", buyer.Address)
	}
	if owner.Address == buyer.Address {
		t.Fatalf("expected distinct accounts")
	}

	t.Setenv("TEST_BUYER", devKey0)
	if _, _, err := LoadPair("TEST_OWNER", "TEST_BUYER"); err == nil {
		t.Fatalf("expected error when both envs hold the same key")
	}
}
