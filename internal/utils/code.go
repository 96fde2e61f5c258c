package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateConfirmCode generates a numeric confirmation code of the given length
func GenerateConfirmCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid confirmation code length: %d", length)
	}

	var builder strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		builder.WriteByte(byte('0' + n.Int64()))
	}
	return builder.String(), nil
}

// UploadKey builds the storage key of an uploaded file: year/month/day/<random>.<ext>
func UploadKey(filename string, now time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	return fmt.Sprintf("%d/%d/%d/%s.%s", now.Year(), int(now.Month()), now.Day(),
		strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
}

// HasExtension reports whether filename ends with one of the allowed extensions
func HasExtension(filename string, allowed ...string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}
