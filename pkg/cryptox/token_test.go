package cryptox_test

import (
	"encoding/base64"
	"testing"

	"github.com/aussiebroadwan/sessionkit/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	require.Len(t, raw, cryptox.TokenSize256)

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	a, err := cryptox.GenerateSecret(32)
	require.NoError(t, err)
	b, err := cryptox.GenerateSecret(32)
	require.NoError(t, err)
	require.Len(t, a, 32)
	require.NotEqual(t, a, b)

	_, err = cryptox.GenerateSecret(-1)
	require.Error(t, err)
}
