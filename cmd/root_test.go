package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"ask", "buy", "quote", "orders", "turns", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "voxcart", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAskCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"session", "budget-min", "budget-max", "audio"} {
		flag := askCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "ask should have --%s flag", flagName)
	}
}

func TestBuyCommand_Flags(t *testing.T) {
	flag := buyCmd.Flags().Lookup("session")
	require.NotNil(t, flag, "buy command should have --session flag")

	flag = quoteCmd.Flags().Lookup("session")
	require.NotNil(t, flag, "quote command should have --session flag")
}

func TestOrdersCommand_Flags(t *testing.T) {
	flag := ordersCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "orders command should have --limit flag")
	assert.Equal(t, "50", flag.DefValue)

	flag = ordersCmd.Flags().Lookup("method")
	require.NotNil(t, flag, "orders command should have --method flag")
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
