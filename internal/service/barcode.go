package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// barcodeSpace is the number of distinct six-digit barcodes. At a few
// thousand checkables per tournament collisions are rare and retried.
const barcodeSpace = 1_000_000

// BarcodeGenerator returns a candidate barcode. Uniqueness is enforced by
// the store, not the generator.
type BarcodeGenerator func() (string, error)

// RandomBarcode returns a zero-padded six-digit code from crypto/rand.
func RandomBarcode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(barcodeSpace))
	if err != nil {
		return "", fmt.Errorf("generate barcode: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
