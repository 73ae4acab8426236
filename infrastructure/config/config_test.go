package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ArchainTeam/archain/infrastructure/logger"
)

func hexAddr() string { return strings.Repeat("ab", 32) }

func TestLoadAppliesDefaultsWithNoArgs(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, defaultLogLevel)
	}
	if cfg.Level != logger.LevelInfo {
		t.Fatalf("Level = %v, want LevelInfo", cfg.Level)
	}
	if cfg.MemoryCheckRatio != defaultMemoryCheckRatio {
		t.Fatalf("MemoryCheckRatio = %d, want %d", cfg.MemoryCheckRatio, defaultMemoryCheckRatio)
	}
	if len(cfg.warnings) != 0 {
		t.Fatalf("unexpected warnings on a default load: %v", cfg.warnings)
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	if _, err := Load([]string{"--loglevel=garbage"}); err == nil {
		t.Fatalf("expected an error for an invalid loglevel")
	}
}

func TestLoadRejectsOutOfRangeLossProbability(t *testing.T) {
	if _, err := Load([]string{"--lossprobability=1.5"}); err == nil {
		t.Fatalf("expected an error for a lossprobability outside [0,1)")
	}
}

func TestLoadDecodesRewardAddr(t *testing.T) {
	cfg, err := Load([]string{"--rewardaddr=" + hexAddr()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RewardAddrHash == nil {
		t.Fatalf("RewardAddrHash was not set")
	}
	if got := cfg.RewardAddrHash.String(); got != hexAddr() {
		t.Fatalf("RewardAddrHash = %q, want %q", got, hexAddr())
	}
}

func TestLoadRejectsMalformedRewardAddr(t *testing.T) {
	if _, err := Load([]string{"--rewardaddr=not-hex"}); err == nil {
		t.Fatalf("expected an error for a malformed rewardaddr")
	}
}

func TestLoadParsesPeerList(t *testing.T) {
	cfg, err := Load([]string{"--peer=" + hexAddr()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Peers) != 1 || cfg.Peers[0].ID.String() != hexAddr() {
		t.Fatalf("Peers = %+v", cfg.Peers)
	}
}

func TestLoadConfigFileIsOverriddenByCLIFlags(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "weaved.conf")
	if err := os.WriteFile(confPath, []byte("loglevel=debug\nmemorycheckratio=7\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load([]string{"--configfile=" + confPath, "--loglevel=warn"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want %q (CLI flag should win over the config file)", cfg.LogLevel, "warn")
	}
	if cfg.MemoryCheckRatio != 7 {
		t.Fatalf("MemoryCheckRatio = %d, want 7 (from the config file, not overridden on the CLI)", cfg.MemoryCheckRatio)
	}
	if len(cfg.warnings) != 0 {
		t.Fatalf("unexpected warnings loading a valid config file: %v", cfg.warnings)
	}
}

func TestLoadWarnsOnMissingExplicitConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist.conf")
	cfg, err := Load([]string{"--configfile=" + missing})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Warnings()) == 0 {
		t.Fatalf("expected a warning about the missing explicit config file")
	}
}

func TestLoadExpandsTildeInDataDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available in this environment")
	}
	cfg, err := Load([]string{"--datadir=~/weave-data"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := filepath.Join(home, "weave-data")
	if cfg.DataDir != want {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, want)
	}
}
