package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadzakiakmal/internnft-chain/types"
)

func TestIdentifierRoundTrip(t *testing.T) {
	for _, id := range []string{"0", "1", "42", "007", "18446744073709551615"} {
		key, err := ToInternal(id)
		require.NoError(t, err, id)
		assert.Equal(t, "intern #"+id, key)

		back, err := ToExternal(key)
		require.NoError(t, err, id)
		assert.Equal(t, id, back)
	}
}

func TestToInternalRejectsNonNumeric(t *testing.T) {
	for _, id := range []string{"", "intern #1", "Intern #1", "-1", "1a", "1.0", " 1", "18446744073709551616"} {
		_, err := ToInternal(id)
		assert.ErrorIs(t, err, types.ErrInvalidIdentifier, "%q", id)
	}
}

func TestToExternalRejectsForeignKeys(t *testing.T) {
	for _, key := range []string{"5", "intern #", "intern #x", "Intern #5", "token 5"} {
		_, err := ToExternal(key)
		assert.ErrorIs(t, err, types.ErrInvalidIdentifier, "%q", key)
	}
}
