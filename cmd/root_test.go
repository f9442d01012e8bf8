package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-validator/internal/api"
	"github.com/sells-group/lead-validator/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"validate", "batch", "serve", "runs", "migrate", "token"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "lead-validator", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestValidateCommand_Flags(t *testing.T) {
	flag := validateCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "json", flag.DefValue)
	assert.Error(t, validateCmd.Args(validateCmd, nil))
	assert.NoError(t, validateCmd.Args(validateCmd, []string{"a.wav"}))
}

func TestBatchCommand_Flags(t *testing.T) {
	for _, name := range []string{"report", "format"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "batch should have --%s flag", name)
	}
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
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
	assert.Contains(t, runsShowCmd.Aliases, "get")
}

func TestTokenCommand_Flags(t *testing.T) {
	flag := tokenCmd.Flags().Lookup("subject")
	require.NotNil(t, flag)
	assert.Equal(t, "operator", flag.DefValue)
}

func TestMintToken(t *testing.T) {
	sc := config.ServerConfig{JWTSecret: "test-secret", TokenTTLMins: 5}

	var buf bytes.Buffer
	require.NoError(t, mintToken(&buf, sc, "ops"))

	tok := strings.TrimSpace(buf.String())
	require.NotEmpty(t, tok)

	auth, err := api.NewAuthenticator("test-secret", 5*time.Minute)
	require.NoError(t, err)
	claims, err := auth.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}

func TestMintToken_NoSecret(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, mintToken(&buf, config.ServerConfig{}, "ops"))
	assert.Empty(t, buf.String())
}

func TestServerOptions(t *testing.T) {
	prev := metrics
	metrics = nil
	t.Cleanup(func() { metrics = prev })

	opts := serverOptions(config.ServerConfig{
		CORSOrigins: []string{"https://ops.example.com"},
		MaxUploadMB: 2,
		RefSchemes:  []string{"s3", "file"},
		RefRoot:     "/srv/recordings",
	})
	assert.Equal(t, int64(2<<20), opts.MaxUploadBytes)
	assert.Equal(t, []string{"s3", "file"}, opts.RefSchemes)
	assert.Equal(t, "/srv/recordings", opts.RefRoot)
	assert.Equal(t, []string{"https://ops.example.com"}, opts.CORSOrigins)
	assert.Nil(t, opts.MetricsHandler)
}

func TestInitSentry_NoDSN(t *testing.T) {
	assert.NoError(t, initSentry(config.SentryConfig{}))
}

func TestReportError_NoClient(t *testing.T) {
	assert.NotPanics(t, func() { reportError(assert.AnError) })
}
