package token

import (
	"strconv"
	"strings"

	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// internalPrefix is the storage key scheme hidden behind numeric identifiers.
const internalPrefix = "intern #"

// ToInternal maps an external numeric identifier to the internal storage key.
func ToInternal(numericID string) (string, error) {
	if !isNumeric(numericID) {
		return "", types.Wrapf(types.ErrInvalidIdentifier, "%q", numericID)
	}
	return internalPrefix + numericID, nil
}

// ToExternal maps an internal storage key back to its numeric identifier.
func ToExternal(internalKey string) (string, error) {
	id, ok := strings.CutPrefix(internalKey, internalPrefix)
	if !ok || !isNumeric(id) {
		return "", types.Wrapf(types.ErrInvalidIdentifier, "%q", internalKey)
	}
	return id, nil
}

// FormatID renders a sequential token number as an external identifier.
func FormatID(n uint64) string {
	return strconv.FormatUint(n, 10)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
