package cpmm

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// DecodeTokenAmount reads the u64 balance of an SPL token account
func DecodeTokenAmount(data []byte) (uint64, error) {
	if len(data) < TokenAccountAmountOffset+8 {
		return 0, fmt.Errorf("token account is %d bytes: %w", len(data), ErrMalformedAccount)
	}

	decoder := bin.NewBinDecoder(data)
	if err := decoder.SkipBytes(TokenAccountAmountOffset); err != nil {
		return 0, fmt.Errorf("failed to skip to amount: %v: %w", err, ErrMalformedAccount)
	}

	amount, err := decoder.ReadUint64(binary.LittleEndian)
	if err != nil {
		return 0, fmt.Errorf("failed to decode amount: %v: %w", err, ErrMalformedAccount)
	}
	return amount, nil
}
