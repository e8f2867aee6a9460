package chain

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program addresses.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

const pdaMarker = "ProgramDerivedAddress"

// isOnCurve reports whether b is a valid curve point. Program-derived
// addresses must NOT be on the curve, so nobody can hold their key.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// FindProgramAddress derives the program address for the given seeds,
// walking the bump seed down from 255 until the hash falls off the curve.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := decodeAddress(programID)
	if err != nil {
		return "", 0, err
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{uint8(bump)})
		h.Write(program[:])
		h.Write([]byte(pdaMarker))
		candidate := h.Sum(nil)

		if !isOnCurve(candidate) {
			return base58.Encode(candidate), uint8(bump), nil
		}
	}
	return "", 0, fmt.Errorf("no viable program address for seeds")
}

// AssociatedTokenAddress derives the owner's holding sub-account for a mint.
func AssociatedTokenAddress(owner, mint string) (string, error) {
	ownerKey, err := decodeAddress(owner)
	if err != nil {
		return "", err
	}
	mintKey, err := decodeAddress(mint)
	if err != nil {
		return "", err
	}
	tokenProgram, err := decodeAddress(TokenProgramID)
	if err != nil {
		return "", err
	}

	addr, _, err := FindProgramAddress(
		[][]byte{ownerKey[:], tokenProgram[:], mintKey[:]},
		AssociatedTokenProgramID,
	)
	if err != nil {
		return "", fmt.Errorf("derive associated token address: %w", err)
	}
	return addr, nil
}
