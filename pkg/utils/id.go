package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func NewID() string { return uuid.NewString() }

// RandHex n 字节随机数的十六进制串
func RandHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand 不可用时退回 uuid 的随机源
		u := uuid.New()
		copy(b, u[:])
	}
	return hex.EncodeToString(b)
}
