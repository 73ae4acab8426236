// Package config loads a node's startup settings the way kaspad's config
// package does: sane defaults, then a config file, then CLI flags, each
// layer overriding the last. Grounded on kaspad's config/config.go
// Flags/loadConfig shape, trimmed to the knobs a single-process blockweave
// node actually has: no RPC, no P2P transport, no database backend choice.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/gossip"
	"github.com/ArchainTeam/archain/infrastructure/logger"
)

const (
	defaultConfigFilename   = "weaved.conf"
	defaultDataDirname      = "data"
	defaultLogLevel         = "info"
	defaultMiningDelayMs    = 0
	defaultCallTimeoutMs    = 5000
	defaultMemoryCheckRatio = 4
	defaultLossProbability  = 0.0
)

// DefaultHomeDir is the default directory weaved stores its data and
// config file under.
var DefaultHomeDir = defaultHomeDir()

func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".weaved")
}

var defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
var defaultDataDir = filepath.Join(DefaultHomeDir, defaultDataDirname)

// Flags defines the command-line/config-file options for weaved.
//
// See Load for details on the configuration load process.
type Flags struct {
	ConfigFile       string   `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir          string   `short:"b" long:"datadir" description:"Directory to store block/tx/wallet data"`
	LogLevel         string   `short:"d" long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	RewardAddr       string   `long:"rewardaddr" description:"Hex-encoded wallet address mined blocks pay their reward to"`
	AutomineOnStart  bool     `long:"automine" description:"Start mining continuously as soon as the node is running"`
	ListenPeers      []string `long:"peer" description:"Hex-encoded node id of a peer to register with at startup, repeatable"`
	LossProbability  float64  `long:"lossprobability" description:"Fraction of gossip sends to simulate dropping, in [0,1)"`
	MiningDelayMs    int64    `long:"miningdelay" description:"Mining delay in milliseconds, recorded in node state; the miner reseeds after a WorkComplete without waiting on it"`
	CallTimeoutMs    int64    `long:"calltimeout" description:"Milliseconds a synchronous call waits for its reply before giving up"`
	MemoryCheckRatio int64    `long:"memorycheckratio" description:"Multiplier applied to a tx's data size in the tx pool's memory-pressure admission check"`
}

// Config is Flags plus the fields Load derives from them: a decoded
// reward address and a parsed log level/peer list/call timeout, ready for
// consensus.Params/Factory to consume without re-parsing strings.
type Config struct {
	*Flags

	RewardAddrHash *externalapi.DomainHash
	Level          logger.Level
	Peers          []gossip.Peer
	CallTimeout    time.Duration

	warnings []string
}

// Warnings reports non-fatal issues noticed while loading, such as an
// explicitly requested config file that is missing or fails to parse.
func (c *Config) Warnings() []string { return c.warnings }

// newConfigParser returns a go-flags parser wired to cfgFlags.
func newConfigParser(cfgFlags *Flags, options flags.Options) *flags.Parser {
	return flags.NewParser(cfgFlags, options)
}

// Load parses weaved's configuration the same four-step way kaspad's
// loadConfig does:
//  1. start from a default Flags with sane values
//  2. pre-parse argv to find an alternative --configfile
//  3. load that config file, overwriting defaults
//  4. parse argv again, so CLI flags always win
//
// A missing default config file is ignored; an explicitly named config
// file that is missing, or any config file that fails to parse, becomes a
// warning. Invalid command-line flags or values are errors.
func Load(argv []string) (*Config, error) {
	cfgFlags := Flags{
		ConfigFile:       defaultConfigFile,
		DataDir:          defaultDataDir,
		LogLevel:         defaultLogLevel,
		LossProbability:  defaultLossProbability,
		MiningDelayMs:    defaultMiningDelayMs,
		CallTimeoutMs:    defaultCallTimeoutMs,
		MemoryCheckRatio: defaultMemoryCheckRatio,
	}

	preCfg := cfgFlags
	preParser := newConfigParser(&preCfg, flags.HelpFlag|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(argv); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, err
		}
	}

	var configFileError error
	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		iniParser := newConfigParser(&cfgFlags, flags.Default)
		if err := flags.NewIniParser(iniParser).ParseFile(preCfg.ConfigFile); err != nil {
			configFileError = err
		}
	} else if preCfg.ConfigFile != defaultConfigFile {
		configFileError = err
	}

	parser := newConfigParser(&cfgFlags, flags.Default)
	if _, err := parser.ParseArgs(argv); err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			return nil, errors.Wrap(err, "parsing command line flags")
		}
		return nil, err
	}

	cfg, err := resolve(&cfgFlags)
	if err != nil {
		return nil, err
	}

	if configFileError != nil {
		cfg.warnings = append(cfg.warnings, fmt.Sprintf("could not load config file %s: %s", preCfg.ConfigFile, configFileError))
	}
	return cfg, nil
}

// resolve validates cfgFlags and derives Config's parsed fields from it.
func resolve(cfgFlags *Flags) (*Config, error) {
	cfg := &Config{Flags: cfgFlags}

	level, ok := logger.LevelFromString(cfg.LogLevel)
	if !ok {
		return nil, errors.Errorf("invalid loglevel %q", cfg.LogLevel)
	}
	cfg.Level = level

	if cfg.RewardAddr != "" {
		addr, err := decodeHash(cfg.RewardAddr)
		if err != nil {
			return nil, errors.Wrap(err, "invalid rewardaddr")
		}
		cfg.RewardAddrHash = addr
	}

	if cfg.LossProbability < 0 || cfg.LossProbability >= 1 {
		return nil, errors.Errorf("lossprobability must be in [0,1), got %v", cfg.LossProbability)
	}

	if cfg.MiningDelayMs < 0 {
		return nil, errors.Errorf("miningdelay may not be negative")
	}

	if cfg.CallTimeoutMs <= 0 {
		return nil, errors.Errorf("calltimeout must be positive")
	}
	cfg.CallTimeout = time.Duration(cfg.CallTimeoutMs) * time.Millisecond

	if cfg.MemoryCheckRatio <= 0 {
		return nil, errors.Errorf("memorycheckratio must be positive")
	}

	for _, p := range cfg.ListenPeers {
		id, err := decodeHash(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid peer id %q", p)
		}
		cfg.Peers = append(cfg.Peers, gossip.Peer{ID: *id})
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)

	return cfg, nil
}

func decodeHash(s string) (*externalapi.DomainHash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return externalapi.NewDomainHashFromByteSlice(b)
}

// cleanAndExpandPath expands a leading ~ to the user's home directory and
// cleans the result, the same normalization kaspad's config applies to
// DataDir/LogDir before use.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = strings.Replace(path, "~", home, 1)
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}
