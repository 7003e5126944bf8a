package flagx

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{name: "separate value", args: []string{"-c", "conf.json", "-a", ":50051"}, allowed: []string{"-c"}, want: []string{"-c", "conf.json"}},
		{name: "equals form", args: []string{"--config=alt.json", "-a", ":50051"}, allowed: []string{"--config"}, want: []string{"--config=alt.json"}},
		{name: "unknown ignored", args: []string{"-x", "1", "--y=2", "positional"}, allowed: []string{"-c"}, want: []string{}},
		{name: "trailing flag without value", args: []string{"-c"}, allowed: []string{"-c"}, want: []string{"-c"}},
		{name: "next token is a flag", args: []string{"-c", "-d", "dsn"}, allowed: []string{"-c"}, want: []string{"-c"}},
		{name: "repeated flag keeps order", args: []string{"-c", "one.json", "-c", "two.json"}, allowed: []string{"-c"}, want: []string{"-c", "one.json", "-c", "two.json"}},
		{name: "empty", args: nil, allowed: []string{"-c"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestParseKnown_IgnoresForeignFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	addr := fs.String("a", "", "address")
	secret := fs.String("rs", "", "refresh secret")

	err := ParseKnown(fs, []string{"-c", "conf.json", "-a", ":6000", "--rs=abc", "-zzz"})
	require.NoError(t, err)

	assert.Equal(t, ":6000", *addr)
	assert.Equal(t, "abc", *secret)
}

func TestConfigFilePath(t *testing.T) {
	assert.Equal(t, "/path/short.json", ConfigFilePath([]string{"-c", "/path/short.json"}))
	assert.Equal(t, "/path/long.json", ConfigFilePath([]string{"-a", ":1", "-config", "/path/long.json"}))
	assert.Equal(t, "/path/2.json", ConfigFilePath([]string{"-c", "/path/1.json", "-config", "/path/2.json"}))
	assert.Empty(t, ConfigFilePath([]string{"-x", "1"}))
}
