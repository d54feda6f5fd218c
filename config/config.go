package config

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/minichain/minichain/chain"
	"github.com/minichain/minichain/logging"
)

const (
	defaultLogDirname     = "logs"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10

	defaultDifficulty   = 4
	defaultReward       = 50.0
	defaultMaxSealNonce = 1 << 32
)

// Config defines the configuration options for the minichain coordinator.
type Config struct {
	MinichainDir   string  `long:"minichaindir"   description:"The base directory that contains minichain's logs and configuration file"`
	ConfigFile     string  `long:"configfile"     description:"Path to configuration file"                                               short:"c"`
	LogDir         string  `long:"logdir"         description:"Directory to log output"`
	DebugLog       bool    `long:"debuglog"       description:"Enable debug logs"`
	JSONLog        bool    `long:"jsonlog"        description:"Whether to log in JSON format"`
	MaxLogFiles    int     `long:"maxlogfiles"    description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int     `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	MetricsPort    *uint16 `long:"metrics-port"   description:"The port to expose metrics"`

	Difficulty   uint    `long:"difficulty"     description:"Required number of leading zero hex digits in a sealed block hash"`
	Reward       float64 `long:"reward"         description:"Mining reward credited to the selected miner of each block"`
	MaxSealNonce uint64  `long:"max-seal-nonce" description:"Upper bound for the sealing nonce search (0 for unbounded)"`
	Policy       string  `long:"policy"         description:"How to treat candidate transactions that fail validation" choice:"lenient" choice:"strict"`
}

// DefaultConfig returns a config with default hardcoded values.
func DefaultConfig() *Config {
	minichainDir := "./minichain"
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		minichainDir = filepath.Join(cacheDir, "minichain")
	}

	return &Config{
		MinichainDir:   minichainDir,
		LogDir:         filepath.Join(minichainDir, defaultLogDirname),
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
		Difficulty:     defaultDifficulty,
		Reward:         defaultReward,
		MaxSealNonce:   defaultMaxSealNonce,
		Policy:         string(chain.PolicyLenient),
	}
}

// ParseFlags reads values from command line arguments.
func ParseFlags(preCfg *Config) (*Config, error) {
	if _, err := flags.Parse(preCfg); err != nil {
		return nil, err
	}
	return preCfg, nil
}

// ReadConfigFile reads config from an ini file. It uses the provided
// `cfg` as a base config and overrides it with the values from the file.
func ReadConfigFile(cfg *Config) (*Config, error) {
	if cfg.ConfigFile == "" {
		return cfg, nil
	}
	logging.FromContext(context.Background()).Sugar().Debugf("reading config from %s", cfg.ConfigFile)
	if err := flags.IniParse(cfg.ConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %v: %w", cfg.ConfigFile, err)
	}
	return cfg, nil
}

// SetupConfig expands paths and initializes the filesystem.
func SetupConfig(cfg *Config) (*Config, error) {
	defaultCfg := DefaultConfig()
	if cfg.MinichainDir != defaultCfg.MinichainDir && cfg.LogDir == defaultCfg.LogDir {
		cfg.LogDir = filepath.Join(cfg.MinichainDir, defaultLogDirname)
	}

	if err := os.MkdirAll(cfg.MinichainDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %v: %w", cfg.MinichainDir, err)
	}

	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	if err := os.MkdirAll(cfg.LogDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %v: %w", cfg.LogDir, err)
	}

	return cfg, nil
}

// Params maps the mining knobs to ledger parameters.
func (cfg *Config) Params() chain.Params {
	return chain.Params{
		Difficulty:   cfg.Difficulty,
		Reward:       cfg.Reward,
		MaxSealNonce: cfg.MaxSealNonce,
		Policy:       chain.Policy(cfg.Policy),
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		user, err := user.Current()
		if err == nil {
			homeDir = user.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
