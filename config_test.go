package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blutil.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = \"/dev/ttyUSB1\"\nbaud = 115200\n"), 0o644))

	t.Setenv("BLUTIL_PORT", "/dev/ttyUSB2")

	fSet := flag.NewFlagSet("test", flag.ContinueOnError)
	fSet.String("p", "", "")
	fSet.String("log-level", "info", "")
	require.NoError(t, fSet.Parse([]string{"-log-level", "debug"}))

	config, err := LoadConfig(WithDefaults(), WithFile(path), WithEnv(), WithFlags(fSet))
	require.NoError(t, err)

	// Env overrides the file, flags override env, and untouched keys keep
	// the layer below.
	require.Equal(t, "/dev/ttyUSB2", config.Port)
	require.Equal(t, 115200, config.Baud)
	require.Equal(t, "debug", config.LogLevel)
	require.Equal(t, "http://uwterminalx.no-ip.org/xcompile.php?JSON=1", config.CompileURL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(WithDefaults(), WithFile(filepath.Join(t.TempDir(), "absent.toml")))
	require.Error(t, err)
}

func TestLoadConfigNoFile(t *testing.T) {
	config, err := LoadConfig(WithDefaults(), WithFile(""))
	require.NoError(t, err)
	require.Equal(t, 9600, config.Baud)
}

func TestOperationChain(t *testing.T) {
	tests := []struct {
		name string
		op   operation
		want operation
	}{
		{
			name: "Running source compiles and uploads it",
			op:   operation{run: "blinky.sb"},
			want: operation{run: "blinky.sb", load: "blinky.sb", compile: "blinky.sb"},
		},
		{
			name: "Running bytecode uploads it",
			op:   operation{run: "blinky.uwc"},
			want: operation{run: "blinky.uwc", load: "blinky.uwc"},
		},
		{
			name: "Running by remote name touches nothing",
			op:   operation{run: "blinky"},
			want: operation{run: "blinky"},
		},
		{
			name: "Loading source compiles it",
			op:   operation{load: "blinky.sb"},
			want: operation{load: "blinky.sb", compile: "blinky.sb"},
		},
		{
			name: "Loading bytecode stands alone",
			op:   operation{load: "blinky.uwc"},
			want: operation{load: "blinky.uwc"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.op.chain()
			require.Equal(t, tt.want, tt.op)
		})
	}
}
