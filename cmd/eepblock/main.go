// Command eepblock decodes residual-coded sample blocks from an EEP/CNT
// recording and reports per-channel statistics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/rjboer/goeep/internal/decoder"
	"github.com/rjboer/goeep/internal/dsp"
	"github.com/rjboer/goeep/internal/logging"
	"github.com/rjboer/goeep/internal/source"
	"github.com/rjboer/goeep/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.LookupEnv, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "eepblock:", err)
		os.Exit(1)
	}
}

type cliConfig struct {
	configPath  string
	input       string
	offset      uint64
	nsamp       int
	nchan       int
	blocks      int
	out         string
	withSamples bool
	stats       bool
	logLevel    string
	logFormat   string
	sshHost     string
	sshUser     string
	sshPassword string
	sshKey      string
	sshPort     int
}

type persistentConfig struct {
	Input     string `json:"input"`
	Offset    uint64 `json:"offset_bits"`
	NSamp     int    `json:"nsamp"`
	NChan     int    `json:"nchan"`
	Blocks    int    `json:"blocks"`
	Stats     bool   `json:"stats"`
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	SSHHost   string `json:"ssh_host"`
	SSHUser   string `json:"ssh_user"`
	SSHKey    string `json:"ssh_key"`
	SSHPort   int    `json:"ssh_port"`
}

func defaultPersistentConfig() persistentConfig {
	return persistentConfig{
		Blocks:    1,
		Stats:     true,
		LogLevel:  "info",
		LogFormat: "text",
		SSHUser:   "root",
		SSHPort:   22,
	}
}

func run(ctx context.Context, args []string, lookup func(string) (string, bool), stderr io.Writer) error {
	defaults := defaultPersistentConfig()
	if path := configPathFrom(args, lookup); path != "" {
		loaded, err := loadConfig(path, defaults)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		defaults = loaded
	}

	cfg, err := parseConfig(args, lookup, defaults)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.logLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return err
	}
	logger := logging.New(level, format, stderr)
	logging.SetDefault(logger)

	loader, err := selectLoader(cfg)
	if err != nil {
		return err
	}
	buf, err := source.Open(ctx, loader, logger)
	if err != nil {
		return err
	}

	reporters := []telemetry.Reporter{telemetry.NewStdoutReporter(logger)}
	var jsonOut *telemetry.JSONReporter
	if cfg.out != "" {
		f, err := os.Create(cfg.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		jsonOut = telemetry.NewJSONReporter(f)
		reporters = append(reporters, jsonOut)
	}

	if err := decodeBlocks(ctx, buf, cfg, logger, telemetry.MultiReporter(reporters...)); err != nil {
		return err
	}
	if jsonOut != nil {
		return jsonOut.Close()
	}
	return nil
}

func decodeBlocks(ctx context.Context, buf []byte, cfg cliConfig, logger logging.Logger, reporter telemetry.Reporter) error {
	r := decoder.NewBlockReader(buf, cfg.offset, logger)
	for i := 0; i < cfg.blocks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := r.Offset()
		m, err := r.Next(cfg.nsamp, cfg.nchan)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}

		rep := telemetry.BlockReport{
			Block:       i,
			StartOffset: start,
			EndOffset:   r.Offset(),
			NSamp:       m.NSamp,
			NChan:       m.NChan,
		}
		if cfg.stats {
			rep.Channels = dsp.Summarize(m)
		}
		if cfg.withSamples {
			rep.Samples = make([][]int32, m.NChan)
			for c := range rep.Samples {
				rep.Samples[c] = m.Channel(c)
			}
		}
		if err := reporter.Report(rep); err != nil {
			return fmt.Errorf("report block %d: %w", i, err)
		}
	}
	return nil
}

func parseConfig(args []string, lookup func(string) (string, bool), defaults persistentConfig) (cliConfig, error) {
	cfg := cliConfig{}
	fs := flag.NewFlagSet("eepblock", flag.ContinueOnError)
	fs.StringVar(&cfg.configPath, "config", envString(lookup, "EEP_CONFIG", ""), "Optional JSON config file providing defaults")
	fs.StringVar(&cfg.input, "input", envString(lookup, "EEP_INPUT", defaults.Input), "Recording path (local, or remote with -ssh-host)")
	fs.Uint64Var(&cfg.offset, "offset", envUint(lookup, "EEP_OFFSET", defaults.Offset), "Bit offset of the first block")
	fs.IntVar(&cfg.nsamp, "nsamp", envInt(lookup, "EEP_NSAMP", defaults.NSamp), "Samples per channel in each block")
	fs.IntVar(&cfg.nchan, "nchan", envInt(lookup, "EEP_NCHAN", defaults.NChan), "Channels per block")
	fs.IntVar(&cfg.blocks, "blocks", envInt(lookup, "EEP_BLOCKS", defaults.Blocks), "Number of consecutive blocks to decode")
	fs.StringVar(&cfg.out, "out", envString(lookup, "EEP_OUT", ""), "Optional JSON report output path")
	fs.BoolVar(&cfg.withSamples, "samples", envBool(lookup, "EEP_SAMPLES", false), "Include decoded samples in the JSON report")
	fs.BoolVar(&cfg.stats, "stats", envBool(lookup, "EEP_STATS", defaults.Stats), "Compute per-channel statistics")
	fs.StringVar(&cfg.logLevel, "log-level", envString(lookup, "EEP_LOG_LEVEL", defaults.LogLevel), "Log level (debug|info|warn|error)")
	fs.StringVar(&cfg.logFormat, "log-format", envString(lookup, "EEP_LOG_FORMAT", defaults.LogFormat), "Log format (text|json)")
	fs.StringVar(&cfg.sshHost, "ssh-host", envString(lookup, "EEP_SSH_HOST", defaults.SSHHost), "Fetch the recording from this host over SSH")
	fs.StringVar(&cfg.sshUser, "ssh-user", envString(lookup, "EEP_SSH_USER", defaults.SSHUser), "SSH user")
	fs.StringVar(&cfg.sshPassword, "ssh-password", envString(lookup, "EEP_SSH_PASSWORD", ""), "SSH password")
	fs.StringVar(&cfg.sshKey, "ssh-key", envString(lookup, "EEP_SSH_KEY", defaults.SSHKey), "SSH private key path")
	fs.IntVar(&cfg.sshPort, "ssh-port", envInt(lookup, "EEP_SSH_PORT", defaults.SSHPort), "SSH port")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	if cfg.input == "" {
		return cliConfig{}, errors.New("an input recording is required")
	}
	if cfg.nsamp <= 0 || cfg.nchan <= 0 {
		return cliConfig{}, fmt.Errorf("nsamp and nchan must be positive (got %d, %d)", cfg.nsamp, cfg.nchan)
	}
	if cfg.blocks <= 0 {
		return cliConfig{}, fmt.Errorf("blocks must be positive (got %d)", cfg.blocks)
	}
	return cfg, nil
}

// configPathFrom finds -config before the full flag set is built, since the
// file supplies the other flags' defaults.
func configPathFrom(args []string, lookup func(string) (string, bool)) string {
	path := envString(lookup, "EEP_CONFIG", "")
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name != "config" {
			continue
		}
		if hasValue {
			path = value
		} else if i+1 < len(args) {
			path = args[i+1]
			i++
		}
	}
	return path
}

func loadConfig(path string, defaults persistentConfig) (persistentConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return persistentConfig{}, err
	}
	defer f.Close()

	cfg := defaults
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return persistentConfig{}, err
	}
	return cfg, nil
}

func selectLoader(cfg cliConfig) (source.Loader, error) {
	if cfg.sshHost == "" {
		return source.File{Path: cfg.input}, nil
	}
	remote, err := source.NewSSH(source.SSHConfig{
		Host:     cfg.sshHost,
		User:     cfg.sshUser,
		Password: cfg.sshPassword,
		KeyPath:  cfg.sshKey,
		Port:     cfg.sshPort,
		Path:     cfg.input,
	})
	if err != nil {
		return nil, err
	}
	return remote, nil
}

func envString(lookup func(string) (string, bool), key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}

func envInt(lookup func(string) (string, bool), key string, def int) int {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envUint(lookup func(string) (string, bool), key string, def uint64) uint64 {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseUint(val, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envBool(lookup func(string) (string, bool), key string, def bool) bool {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}
