package comet_service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatVersion(t *testing.T) {
	require.Equal(t, "v1.2.3", FormatVersion("v1.2.3", "", "", ""))
	require.Equal(t, "v1.2.3-abcdef12-1700000000-dev", FormatVersion("v1.2.3", "abcdef1234567890", "1700000000", "dev"))
	require.Equal(t, "v1.2.3-abc", FormatVersion("v1.2.3", "abc", "", ""))
}

func TestPrefixEnvVar(t *testing.T) {
	require.Equal(t, []string{"COMET_MIGRATOR_LOG_LEVEL"}, PrefixEnvVar("COMET_MIGRATOR", "LOG_LEVEL"))
	require.Equal(t, []string{"COMET_MIGRATOR_RPC"}, PrefixEnvVar("comet_migrator", "rpc"))
}
