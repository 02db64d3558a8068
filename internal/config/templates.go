package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindClient      = "client"
	KindDefinitions = "definitions"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindClient:
		return clientTemplate, nil
	case KindDefinitions:
		return definitionsTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const clientTemplate = `network = "unix"
address = "/var/run/charon.vici"
dial_timeout = "5s"
# Zero disables the per-read deadline; streamed commands may run for a while.
read_timeout = "0s"
write_timeout = "0s"
max_packet_bytes = 524288
log_level = "info"
output = "yaml"
metrics_addr = ""
# Non-empty requires "Authorization: Bearer <token>" on /metrics.
metrics_token = ""
# Read on every scrape; wins over metrics_token when set.
metrics_token_file = ""
`

const definitionsTemplate = `[connections.gw-gw]
version = 2
local_addrs = ["192.0.2.1"]
remote_addrs = ["198.51.100.1"]
proposals = ["aes128-sha256-x25519"]

[connections.gw-gw.local]
auth = "psk"
id = "gw1"

[connections.gw-gw.remote]
auth = "psk"
id = "gw2"

[connections.gw-gw.children.net]
local_ts = ["10.1.0.0/16"]
remote_ts = ["10.2.0.0/16"]
esp_proposals = ["aes128gcm16-x25519"]
start_action = "trap"

[pools.rw-pool]
addrs = "10.3.0.0/24"
dns = ["10.3.0.1"]
`
