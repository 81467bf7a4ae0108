package token

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	credApp "github.com/felixgeelhaar/subscriptions/internal/credentials/application"
	credDomain "github.com/felixgeelhaar/subscriptions/internal/credentials/domain"
	"github.com/felixgeelhaar/subscriptions/internal/credentials/infrastructure/securestore"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/crypto"
)

func resetFlags() {
	showReveal = false
	setFromStdin = false
	capabilityJSON = false
}

func newTokenStore(t *testing.T, withKey bool) *credApp.TokenStore {
	t.Helper()
	resetFlags()

	key := ""
	if withKey {
		var err error
		key, err = crypto.GenerateKey()
		require.NoError(t, err)
	}
	provider := securestore.NewProviderFromKey(securestore.NewMemoryBackend(), key, nil)
	tokens := credApp.NewTokenStore(provider)
	cli.SetApp(&cli.App{Tokens: tokens})
	t.Cleanup(func() { cli.SetApp(nil) })
	return tokens
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out strings.Builder
	cmd, rest, err := Cmd.Find(args)
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags(rest))
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err = cmd.RunE(cmd, cmd.Flags().Args())
	return out.String(), err
}

func TestShowCmd_NoApp(t *testing.T) {
	resetFlags()
	cli.SetApp(nil)

	_, err := execute(t, "", "show")
	assert.Error(t, err)
}

func TestShowCmd_Absent(t *testing.T) {
	newTokenStore(t, true)

	out, err := execute(t, "", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "No token stored.")
}

func TestSetShowClear(t *testing.T) {
	tokens := newTokenStore(t, true)
	ctx := context.Background()

	out, err := execute(t, "", "set", "tok-1234567890")
	require.NoError(t, err)
	assert.Contains(t, out, "Token stored.")
	value, ok := tokens.Token(ctx)
	require.True(t, ok)
	assert.Equal(t, "tok-1234567890", value)

	out, err = execute(t, "", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "****7890")
	assert.NotContains(t, out, "tok-1234567890")

	out, err = execute(t, "", "show", "--reveal")
	require.NoError(t, err)
	assert.Equal(t, "tok-1234567890\n", out)

	_, err = execute(t, "", "clear")
	require.NoError(t, err)
	_, ok = tokens.Token(ctx)
	assert.False(t, ok)
}

func TestSetCmd_Stdin(t *testing.T) {
	tokens := newTokenStore(t, true)

	_, err := execute(t, "from-stdin\n", "set", "--stdin")

	require.NoError(t, err)
	value, ok := tokens.Token(context.Background())
	require.True(t, ok)
	assert.Equal(t, "from-stdin", value)
}

func TestSetCmd_RequiresToken(t *testing.T) {
	newTokenStore(t, true)

	_, err := execute(t, "", "set")

	assert.ErrorContains(t, err, "token is required")
}

func TestSetCmd_WithoutEncryptionFails(t *testing.T) {
	newTokenStore(t, false)

	_, err := execute(t, "", "set", "secret")

	assert.ErrorIs(t, err, credDomain.ErrTokenWriteFailed)
}

func TestCapabilityCmd(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		newTokenStore(t, true)
		out, err := execute(t, "", "capability")
		require.NoError(t, err)
		assert.Contains(t, out, "available")
		assert.NotContains(t, out, "unavailable")
	})

	t.Run("unavailable as JSON", func(t *testing.T) {
		newTokenStore(t, false)
		out, err := execute(t, "", "capability", "--json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"encryption":false}`, out)
	})
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", mask("short"))
	assert.Equal(t, "****wxyz", mask("abcdefghijklmnopqrstuvwxyz"))
}
