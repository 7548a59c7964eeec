package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignSnapshot generates a hex HMAC-SHA256 of an exported snapshot file
func SignSnapshot(data []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySnapshot checks a signature produced by SignSnapshot
func VerifySnapshot(data []byte, signature, secret string) error {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}
	want, _ := hex.DecodeString(SignSnapshot(data, secret))
	if !hmac.Equal(got, want) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
