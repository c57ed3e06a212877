package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/lasqc/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"process", "qc", "certify", "verify", "export", "runs", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "lasqc", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestConfigFields(t *testing.T) {
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Processing.Standardize = true
	c.Processing.Despike.Enabled = true
	c.Processing.Despike.Method = "hampel"
	c.Certify.SigningKey = "k"

	core, logs := observer.New(zapcore.DebugLevel)
	zap.New(core).Debug("config loaded", configFields("process", c)...)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "process", fields["command"])
	assert.Equal(t, "sqlite", fields["store_driver"])
	assert.Equal(t, []any{"standardize", "despike:hampel"}, fields["stages"])
	assert.Equal(t, true, fields["signed_hmac"])
	assert.Equal(t, false, fields["monitoring"])
	assert.NotContains(t, fields, "signing_key")
}

func TestProcessCommand_Flags(t *testing.T) {
	flag := processCmd.Flags().Lookup("out-dir")
	require.NotNil(t, flag, "process command should have --out-dir flag")
	assert.Equal(t, "", flag.DefValue)

	require.NotNil(t, processCmd.Flags().Lookup("no-store"))
	assert.Error(t, processCmd.Args(processCmd, nil), "process requires at least one file")
}

func TestExportCommand_Flags(t *testing.T) {
	flag := exportCmd.Flags().Lookup("xlsx")
	require.NotNil(t, flag, "export command should have --xlsx flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats", "health"} {
		assert.True(t, names[name], "expected runs subcommand %q not found", name)
	}
}

func TestRunsHealthCommand_Flags(t *testing.T) {
	hours := runsHealthCmd.Flags().Lookup("hours")
	assert.NotNil(t, hours)
	assert.Equal(t, "0", hours.DefValue)

	notify := runsHealthCmd.Flags().Lookup("notify")
	assert.NotNil(t, notify)
	assert.Equal(t, "false", notify.DefValue)
}
