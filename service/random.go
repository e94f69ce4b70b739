package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CryptoRandom draws from the operating system's secure generator so no
// participant can predict a winner.
type CryptoRandom struct{}

func (CryptoRandom) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid range %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}
