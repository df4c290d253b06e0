package address

import (
	"errors"
	"testing"
)

const (
	usdtBase58 = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	usdtHex    = "41a614f803b6fd780986a42c78ec9c7f77e6ded13c"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid", usdtBase58, nil},
		{"empty", "", ErrEmpty},
		{"bad alphabet", "T0OIl", ErrInvalidEncoding},
		{"too short", "TR7NHqjeKQ", ErrInvalidLength},
		{"bad checksum", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u", ErrInvalidChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFromHex(t *testing.T) {
	got, err := FromHex(usdtHex)
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}
	if got != usdtBase58 {
		t.Errorf("got %s, want %s", got, usdtBase58)
	}

	if _, err := FromHex("0x" + usdtHex); err != nil {
		t.Errorf("0x prefix should be accepted: %v", err)
	}

	if _, err := FromHex("42a614f803b6fd780986a42c78ec9c7f77e6ded13c"); !errors.Is(err, ErrInvalidPrefix) {
		t.Errorf("expected ErrInvalidPrefix, got %v", err)
	}

	if _, err := FromHex("41a614"); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("expected ErrInvalidLength, got %v", err)
	}
}

func TestFromHex_RoundTripValidates(t *testing.T) {
	for _, h := range []string{
		"410000000000000000000000000000000000000001",
		"41ffffffffffffffffffffffffffffffffffffffff",
	} {
		addr, err := FromHex(h)
		if err != nil {
			t.Fatalf("FromHex(%s): %v", h, err)
		}
		if !IsValid(addr) {
			t.Errorf("address %s from %s does not validate", addr, h)
		}
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("  " + usdtHex + "\n")
	if err != nil {
		t.Fatalf("Normalize hex: %v", err)
	}
	if got != usdtBase58 {
		t.Errorf("got %s, want %s", got, usdtBase58)
	}

	got, err = Normalize(usdtBase58)
	if err != nil || got != usdtBase58 {
		t.Errorf("Normalize base58: got %s, %v", got, err)
	}

	if _, err := Normalize("not-an-address"); err == nil {
		t.Error("expected error for garbage input")
	}
}
