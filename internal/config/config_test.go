package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/vicictl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "vicictl.toml", `
network = "TCP"
address = " 127.0.0.1:4502 "
read_timeout = "30s"
output = "json"
metrics_token = " t0ken "
metrics_token_file = "/run/vicictl/metrics.token"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "tcp", cfg.Network)
	require.Equal(t, "127.0.0.1:4502", cfg.Address)
	require.Equal(t, 30*time.Second, cfg.ReadTimeout)
	require.Equal(t, time.Duration(0), cfg.WriteTimeout)
	require.Equal(t, 5*time.Second, cfg.DialTimeout)
	require.Equal(t, OutputJSON, cfg.Output)
	require.Equal(t, uint32(512*1024), cfg.MaxPacketBytes)
	require.Equal(t, "t0ken", cfg.MetricsToken)
	require.Equal(t, "/run/vicictl/metrics.token", cfg.MetricsTokenFile)

	tc := cfg.Transport()
	require.Equal(t, "tcp", tc.Network)
	require.Equal(t, 30*time.Second, tc.ReadTimeout)
	require.Equal(t, uint32(512*1024), tc.Limits.MaxPacketBytes)
}

func TestLoadTemplateValidates(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "vicictl.toml")
	require.NoError(t, WriteTemplate(path, KindClient, false))
	require.Error(t, WriteTemplate(path, KindClient, false))
	require.NoError(t, WriteTemplate(path, KindClient, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"unknown key":  `sockett = "/tmp/x"`,
		"bad duration": `read_timeout = "soon"`,
		"bad network":  `network = "udp"`,
		"empty addr":   `address = ""`,
		"bad output":   `output = "xml"`,
		"zero packet":  `max_packet_bytes = 0`,
		"neg timeout":  `dial_timeout = "-1s"`,
	}
	for name, body := range cases {
		_, err := Load(writeFile(t, "c.toml", body))
		require.Error(t, err, name)
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoadDefinitionsKeepsFileOrder(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "swanctl.toml")
	require.NoError(t, WriteTemplate(path, KindDefinitions, false))
	path2 := writeFile(t, "more.toml", `
[connections.zeta]
version = 2
[connections.alpha]
version = 1
mobike = false
`)

	defs, err := LoadDefinitions(path)
	require.NoError(t, err)
	require.Len(t, defs.Connections, 1)
	require.Len(t, defs.Pools, 1)

	conn := defs.Connections[0]
	require.Equal(t, "gw-gw", conn.Name)
	local, ok := conn.Body.GetSection("local")
	require.True(t, ok)
	auth, _ := local.GetString("auth")
	require.Equal(t, "psk", auth)
	children, ok := conn.Body.GetSection("children")
	require.True(t, ok)
	net, ok := children.GetSection("net")
	require.True(t, ok)
	ts, _ := net.GetList("local_ts")
	require.Equal(t, []string{"10.1.0.0/16"}, ts)

	wrapped := conn.Message()
	require.Equal(t, []string{"gw-gw"}, wrapped.Keys())

	defs, err = LoadDefinitions(path2)
	require.NoError(t, err)
	require.Equal(t, "zeta", defs.Connections[0].Name)
	require.Equal(t, "alpha", defs.Connections[1].Name)
	mobike, _ := defs.Connections[1].Body.GetString("mobike")
	require.Equal(t, "no", mobike)
}

func TestLoadDefinitionsRejectsTableArrays(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "bad.toml", `
[connections.x]
[[connections.x.children]]
local_ts = ["10.0.0.0/8"]
`)
	_, err := LoadDefinitions(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
