package cryptox_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/sessionkit/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	h := cryptox.Hasher{Pepper: "pepper"}

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, h.Verify("correct horse", hash))
	require.ErrorIs(t, h.Verify("wrong horse", hash), cryptox.ErrMismatch)

	t.Run("pepper is part of the hash", func(t *testing.T) {
		other := cryptox.Hasher{Pepper: "different"}
		require.ErrorIs(t, other.Verify("correct horse", hash), cryptox.ErrMismatch)
	})

	t.Run("salted", func(t *testing.T) {
		again, err := h.Hash("correct horse")
		require.NoError(t, err)
		require.NotEqual(t, hash, again)
	})

	t.Run("malformed hash", func(t *testing.T) {
		require.Error(t, h.Verify("x", "not-a-hash"))
		require.Error(t, h.Verify("x", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb"))
	})
}
