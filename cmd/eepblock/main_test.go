package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noEnv(string) (string, bool) { return "", false }

func mapEnv(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// rawBlock holds one channel of two 16-bit samples stored without residuals:
// method 0, skip nibble, 0x0001, 0xfffe.
var rawBlock = []byte{0x00, 0x00, 0x01, 0xff, 0xfe}

func TestParseConfigDefaults(t *testing.T) {
	defaults := defaultPersistentConfig()
	cfg, err := parseConfig([]string{"-input", "a.cnt", "-nsamp", "2", "-nchan", "1"}, noEnv, defaults)
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if cfg.blocks != 1 || !cfg.stats || cfg.logLevel != "info" || cfg.sshPort != 22 || cfg.offset != 0 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestParseConfigEnvOverrides(t *testing.T) {
	lookup := mapEnv(map[string]string{
		"EEP_INPUT":  "rec.cnt",
		"EEP_OFFSET": "96",
		"EEP_NSAMP":  "128",
		"EEP_NCHAN":  "64",
		"EEP_STATS":  "false",
		"EEP_BLOCKS": "bogus",
	})
	cfg, err := parseConfig([]string{"--blocks", "3"}, lookup, defaultPersistentConfig())
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if cfg.input != "rec.cnt" || cfg.offset != 96 || cfg.nsamp != 128 || cfg.nchan != 64 || cfg.stats || cfg.blocks != 3 {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
}

func TestParseConfigValidation(t *testing.T) {
	cases := [][]string{
		{"-nsamp", "2", "-nchan", "1"},
		{"-input", "a", "-nsamp", "0", "-nchan", "1"},
		{"-input", "a", "-nsamp", "2", "-nchan", "1", "-blocks", "0"},
	}
	for _, args := range cases {
		if _, err := parseConfig(args, noEnv, defaultPersistentConfig()); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestConfigPathFrom(t *testing.T) {
	cases := []struct {
		args []string
		env  map[string]string
		want string
	}{
		{[]string{"-input", "x", "-config", "a.json"}, nil, "a.json"},
		{[]string{"--config=b.json", "-nsamp", "2"}, nil, "b.json"},
		{[]string{"-input", "x"}, map[string]string{"EEP_CONFIG": "env.json"}, "env.json"},
		{[]string{"--", "-config", "ignored.json"}, nil, ""},
	}
	for _, tc := range cases {
		if got := configPathFrom(tc.args, mapEnv(tc.env)); got != tc.want {
			t.Errorf("configPathFrom(%v) = %q want %q", tc.args, got, tc.want)
		}
	}
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eep.json")
	if err := os.WriteFile(path, []byte(`{"nsamp": 256, "nchan": 32}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadConfig(path, defaultPersistentConfig())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.NSamp != 256 || cfg.NChan != 32 || cfg.Blocks != 1 || cfg.LogFormat != "text" {
		t.Fatalf("unexpected config %#v", cfg)
	}
}

func TestSelectLoader(t *testing.T) {
	l, err := selectLoader(cliConfig{input: "local.cnt"})
	if err != nil || l.String() != "local.cnt" {
		t.Fatalf("unexpected local loader %v, %v", l, err)
	}
	if _, err := selectLoader(cliConfig{input: "/r.cnt", sshHost: "amp"}); err == nil {
		t.Fatalf("expected error without ssh credentials")
	}
	l, err = selectLoader(cliConfig{input: "/r.cnt", sshHost: "amp", sshUser: "eeg", sshPassword: "pw", sshPort: 2222})
	if err != nil || l.String() != "eeg@amp:2222:/r.cnt" {
		t.Fatalf("unexpected ssh loader %v, %v", l, err)
	}
}

func TestRunWritesReport(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "block.cnt")
	if err := os.WriteFile(input, append(append([]byte{}, rawBlock...), rawBlock...), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	out := filepath.Join(dir, "report.json")

	var logs bytes.Buffer
	args := []string{"-input", input, "-nsamp", "2", "-nchan", "1", "-blocks", "2", "-samples", "-out", out}
	if err := run(context.Background(), args, noEnv, &logs); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc struct {
		Blocks []struct {
			StartOffset uint64    `json:"start_offset_bits"`
			EndOffset   uint64    `json:"end_offset_bits"`
			Samples     [][]int32 `json:"samples"`
		} `json:"blocks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(doc.Blocks))
	}
	if b := doc.Blocks[1]; b.StartOffset != 40 || b.EndOffset != 80 || b.Samples[0][0] != 1 || b.Samples[0][1] != -2 {
		t.Fatalf("unexpected second block %+v", b)
	}
	if !strings.Contains(logs.String(), "channel=0") {
		t.Fatalf("expected channel telemetry in logs: %s", logs.String())
	}
}

func TestRunReportsDecodeError(t *testing.T) {
	input := filepath.Join(t.TempDir(), "bad.cnt")
	if err := os.WriteFile(input, []byte{0x70, 0, 0, 0, 0}, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	err := run(context.Background(), []string{"-input", input, "-nsamp", "2", "-nchan", "1"}, noEnv, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "invalid compression method") {
		t.Fatalf("expected invalid method error, got %v", err)
	}
}
