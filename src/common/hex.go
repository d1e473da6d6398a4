package common

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// EncodeToString returns the UPPERCASE string representation of hexBytes with
// the 0X prefix. It is the format used for producer ids and in log fields.
func EncodeToString(hexBytes []byte) string {
	return fmt.Sprintf("0X%X", hexBytes)
}

// DecodeFromString converts a hex string, with or without the 0X prefix, to a
// byte slice.
func DecodeFromString(hexString string) ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(hexString, "0X"), "0x")
	return hex.DecodeString(s)
}

// ShortString is EncodeToString truncated to its first 8 hex digits. It keeps
// log lines readable when hashes are logged in bulk.
func ShortString(hexBytes []byte) string {
	s := EncodeToString(hexBytes)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
