// Package address validates and converts Tron ledger addresses.
//
// A Tron address is 21 bytes: the 0x41 network prefix followed by the
// 20-byte account id. The human form is base58check: the 21 bytes plus the
// first 4 bytes of a double SHA-256 checksum, base58 encoded ("T...").
package address

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Prefix is the mainnet address prefix byte.
const Prefix byte = 0x41

const (
	payloadLen  = 21
	checksumLen = 4
)

var (
	// ErrEmpty is returned for an empty address string.
	ErrEmpty = errors.New("empty address")

	// ErrInvalidEncoding is returned when the address is not valid base58 or hex.
	ErrInvalidEncoding = errors.New("invalid address encoding")

	// ErrInvalidLength is returned when the decoded address has the wrong size.
	ErrInvalidLength = errors.New("invalid address length")

	// ErrInvalidPrefix is returned when the network prefix is not 0x41.
	ErrInvalidPrefix = errors.New("invalid address prefix")

	// ErrInvalidChecksum is returned when the base58check checksum does not match.
	ErrInvalidChecksum = errors.New("invalid address checksum")
)

// Validate checks that s is a well-formed base58check Tron address.
func Validate(s string) error {
	if s == "" {
		return ErrEmpty
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(raw) != payloadLen+checksumLen {
		return ErrInvalidLength
	}

	payload, sum := raw[:payloadLen], raw[payloadLen:]
	if payload[0] != Prefix {
		return ErrInvalidPrefix
	}
	if !bytes.Equal(checksum(payload), sum) {
		return ErrInvalidChecksum
	}
	return nil
}

// IsValid reports whether s is a well-formed base58check Tron address.
func IsValid(s string) bool {
	return Validate(s) == nil
}

// FromHex converts a 41-prefixed hex address (with or without 0x) to base58check.
func FromHex(h string) (string, error) {
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	if h == "" {
		return "", ErrEmpty
	}

	payload, err := hex.DecodeString(h)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(payload) != payloadLen {
		return "", ErrInvalidLength
	}
	if payload[0] != Prefix {
		return "", ErrInvalidPrefix
	}

	return base58.Encode(append(payload, checksum(payload)...)), nil
}

// Normalize returns s in base58check form. Hex input is converted,
// base58 input is validated and returned unchanged.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if isHexAddress(s) {
		return FromHex(s)
	}
	if err := Validate(s); err != nil {
		return "", err
	}
	return s, nil
}

func isHexAddress(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != payloadLen*2 || !strings.HasPrefix(s, "41") {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}
