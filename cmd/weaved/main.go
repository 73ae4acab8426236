// Command weaved runs a single blockweave node, wired the way kaspad's
// main.go/kaspad.go boots a full node: load config, configure logging,
// construct the node through its Factory, run it until interrupted.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ArchainTeam/archain/domain/consensus"
	"github.com/ArchainTeam/archain/domain/gossip"
	"github.com/ArchainTeam/archain/infrastructure/config"
	"github.com/ArchainTeam/archain/infrastructure/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.WEVD)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	logger.SetLevels(cfg.Level)
	for _, w := range cfg.Warnings() {
		log.Warnf("%s", w)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	localGossip := gossip.NewLocalGossip()
	localPeerClient := gossip.NewLocalPeerClient()
	factory := consensus.NewFactory(localGossip, localPeerClient)

	nodeID, err := nodeIdentity(cfg)
	if err != nil {
		return err
	}

	node := factory.NewNode(nodeID, consensus.Params{
		RewardAddr:       cfg.RewardAddrHash,
		MiningDelayMs:    cfg.MiningDelayMs,
		LossProbability:  cfg.LossProbability,
		MemoryCheckRatio: cfg.MemoryCheckRatio,
		CallTimeout:      cfg.CallTimeout,
	})

	if len(cfg.Peers) == 0 {
		log.Infof("no peers configured; bootstrapping a new network")
		genesis, genesisWallets := newGenesisBlock()
		if err := node.Bootstrap(genesis, genesisWallets); err != nil {
			return fmt.Errorf("bootstrapping genesis: %w", err)
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		node.Run()
		close(done)
	}()

	if len(cfg.Peers) > 0 {
		if result := node.AddPeers(cfg.Peers); result.Err != nil {
			return fmt.Errorf("registering peers: %w", result.Err)
		}
	}

	if cfg.AutomineOnStart {
		if result := node.AutoMine(); result.Err != nil {
			log.Errorf("enabling automine: %+v", result.Err)
		}
	}

	select {
	case <-interrupt:
		log.Infof("interrupt received, shutting down")
		if result := node.Stop(); result.Err != nil {
			log.Errorf("stopping node: %+v", result.Err)
		}
	case <-done:
	}

	<-done
	return nil
}
