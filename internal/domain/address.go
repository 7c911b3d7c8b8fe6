package domain

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Address seeds.
const (
	SeedMint = "mint"
	SeedPool = "pool"
)

// BurnAddress is the all-zero key. Nobody holds its private key, so tokens
// sent there are gone.
var BurnAddress = solana.PublicKey{}

// DeriveAddress returns the program-derived address for (seed, id).
func DeriveAddress(programID solana.PublicKey, seed string, id AssetID) (solana.PublicKey, error) {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], uint64(id))
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seed), idBytes[:]}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive %s address for asset %d: %w", seed, id, err)
	}
	return addr, nil
}

// ParseAddress decodes a base58 account key.
func ParseAddress(s string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w %q: %v", ErrInvalidAddress, s, err)
	}
	return key, nil
}
