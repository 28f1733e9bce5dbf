package command

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		json   string
		expErr string
	}{
		"minimal": {
			json: `{"park": {"name": "Sunny Acres"}}`,
		},
		"full": {
			json: `{
				"park": {"name": "Sunny Acres", "width": 40, "height": 30, "cash": 10000, "player": "Ana"},
				"driver": {"frame_length": "100ms", "max_frame": "1s"},
				"storage": {"driver": "sqlite", "path": "saves.db", "slot": "main", "autosave_interval": "1m"},
				"sync": {"transport": "nats", "join_timeout": "3s"},
				"nats": {"embedded": true, "port": 4333},
				"listeners": [{"protocol": "telnet", "port": 4000}, {"protocol": "ssh", "port": 4022}]
			}`,
		},
		"missing name": {
			json:   `{}`,
			expErr: "name is required",
		},
		"bad frame length": {
			json:   `{"park": {"name": "P"}, "driver": {"frame_length": "soon"}}`,
			expErr: "parsing driver: frame_length",
		},
		"storage without path": {
			json:   `{"park": {"name": "P"}, "storage": {"driver": "file"}}`,
			expErr: "storage: path is required",
		},
		"bad slot": {
			json:   `{"park": {"name": "P"}, "storage": {"driver": "file", "path": "saves", "slot": "a/b"}}`,
			expErr: "storage: slot",
		},
		"listener without port": {
			json:   `{"park": {"name": "P"}, "listeners": [{"protocol": "telnet"}]}`,
			expErr: "listener 0: port must be set",
		},
		"operators on telnet": {
			json:   `{"park": {"name": "P"}, "listeners": [{"protocol": "telnet", "port": 4000, "operators": ["ana"]}]}`,
			expErr: "operators only applies to ssh listeners",
		},
		"blank operator": {
			json:   `{"park": {"name": "P"}, "listeners": [{"protocol": "ssh", "port": 4022, "operators": [""]}]}`,
			expErr: "operator 0 has no name",
		},
		"relay path": {
			json:   `{"park": {"name": "P"}, "relay": {"embedded": true, "path": "relay"}}`,
			expErr: "relay: path must start with /",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var cfg Config
			if err := json.Unmarshal([]byte(tt.json), &cfg); err != nil {
				t.Fatalf("unmarshaling config: %v", err)
			}

			err := cfg.Validate()
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_UnknownEnums(t *testing.T) {
	tests := map[string]string{
		"storage driver": `{"storage": {"driver": "tape"}}`,
		"transport":      `{"sync": {"transport": "pigeon"}}`,
		"listener":       `{"listeners": [{"protocol": "gopher", "port": 70}]}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			var cfg Config
			err := json.Unmarshal([]byte(raw), &cfg)
			testutil.AssertErrorContains(t, err, "unknown")
		})
	}
}

func TestSyncConfig_TransportURL(t *testing.T) {
	tests := map[string]struct {
		cfg    Config
		expURL string
		expErr string
	}{
		"explicit": {
			cfg:    Config{Sync: SyncConfig{Transport: TransportNats, URL: "nats://broker:4222"}},
			expURL: "nats://broker:4222",
		},
		"embedded nats": {
			cfg:    Config{Sync: SyncConfig{Transport: TransportNats}, Nats: NatsConfig{Embedded: true, Host: "0.0.0.0", Port: 4333}},
			expURL: "nats://127.0.0.1:4333",
		},
		"embedded nats default port": {
			cfg:    Config{Sync: SyncConfig{Transport: TransportNats}, Nats: NatsConfig{Embedded: true}},
			expURL: "nats://127.0.0.1:4222",
		},
		"embedded relay": {
			cfg:    Config{Sync: SyncConfig{Transport: TransportRelay}, Relay: RelayConfig{Embedded: true, Addr: ":9000", Path: "/sync"}},
			expURL: "ws://127.0.0.1:9000/sync",
		},
		"embedded relay defaults": {
			cfg:    Config{Sync: SyncConfig{Transport: TransportRelay}, Relay: RelayConfig{Embedded: true}},
			expURL: "ws://127.0.0.1:4280/relay",
		},
		"nowhere to connect": {
			cfg:    Config{Sync: SyncConfig{Transport: TransportRelay}},
			expErr: "url is required",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			url, err := tt.cfg.Sync.transportURL(&tt.cfg)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "url", url, tt.expURL)
		})
	}
}

func TestBuildWorkers(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Park:      ParkConfig{Name: "Sunny Acres", Seed: 9},
		Storage:   StorageConfig{Driver: StorageDriverFile, Path: dir},
		Listeners: []ListenerConfig{{Protocol: ListenerTypeTelnet, Port: 4000}},
	}

	workers, err := BuildWorkers(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"game", "driver", "listeners"} {
		if _, ok := workers[name]; !ok {
			t.Errorf("missing worker %q", name)
		}
	}
	_, ok := workers["nats"]
	testutil.AssertEqual(t, "nats worker", ok, false)

	_, err = BuildWorkers("not a config")
	testutil.AssertErrorContains(t, err, "unable to cast config")
}

func TestListenerConfig_HostKey(t *testing.T) {
	tests := map[string]struct {
		existing  string
		expErr    string
		expStable bool
	}{
		"written on first use": {expStable: true},
		"unreadable key": {
			existing: "not a key",
			expErr:   "parsing",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "host_key")
			if tt.existing != "" {
				if err := os.WriteFile(path, []byte(tt.existing), 0o600); err != nil {
					t.Fatalf("writing key: %v", err)
				}
			}
			cl := &ListenerConfig{Protocol: ListenerTypeSSH, Port: 4022, HostKeyPath: path}

			first, err := cl.hostKey()
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("host key not written: %v", err)
			}
			testutil.AssertEqual(t, "key mode", info.Mode().Perm(), os.FileMode(0o600))

			second, err := cl.hostKey()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			same := bytes.Equal(first.PublicKey().Marshal(), second.PublicKey().Marshal())
			testutil.AssertEqual(t, "same key after reload", same, tt.expStable)
		})
	}
}
