package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gstchain/gstio/pkg/config"
	"github.com/gstchain/gstio/pkg/resource"
)

// BlockUsage summarizes one finalized block for the history recorder.
type BlockUsage struct {
	BlockNum        uint32
	CPUUsage        uint64
	NetUsage        uint64
	VirtualCPULimit uint64
	VirtualNetLimit uint64
	FinalizedAt     time.Time
}

// UsageRecorder receives one BlockUsage per finalized block. Recording is
// best-effort; failures are logged and never abort block production.
type UsageRecorder interface {
	RecordBlockUsage(ctx context.Context, usage BlockUsage) error
}

// Governor runs the per-block governance sequence against the resource
// manager: settle staged limit changes, refresh the block parameters from
// the chain configuration, then fold the block's usage into the moving
// averages.
//
// FinalizeBlock belongs to the chain's single writer. UpdateChainConfig
// may be called from other goroutines (the configuration watcher); the new
// parameters take effect at the next finalized block.
type Governor struct {
	mgr      *resource.Manager
	recorder UsageRecorder
	logger   *slog.Logger

	mu       sync.Mutex
	chainCfg config.ChainConfig
	dirty    bool
}

// GovernorOptions configures optional governor collaborators.
type GovernorOptions struct {
	// Recorder receives per-block usage rows. May be nil.
	Recorder UsageRecorder

	// Logger for governance events. Defaults to slog.Default.
	Logger *slog.Logger
}

// NewGovernor creates a governor for the manager. The chain configuration
// must already be valid; its block parameters are applied at the first
// finalized block.
func NewGovernor(mgr *resource.Manager, chainCfg config.ChainConfig, opts GovernorOptions) (*Governor, error) {
	if mgr == nil {
		return nil, fmt.Errorf("manager cannot be nil")
	}
	if _, _, err := BlockParams(chainCfg); err != nil {
		return nil, fmt.Errorf("invalid chain configuration: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Governor{
		mgr:      mgr,
		recorder: opts.Recorder,
		logger:   logger.With("component", "governor"),
		chainCfg: chainCfg,
		dirty:    true,
	}, nil
}

// UpdateChainConfig replaces the chain configuration used for block
// parameters. The change is validated here and applied at the next
// finalized block.
func (g *Governor) UpdateChainConfig(chainCfg config.ChainConfig) error {
	if _, _, err := BlockParams(chainCfg); err != nil {
		return fmt.Errorf("invalid chain configuration: %w", err)
	}

	g.mu.Lock()
	g.chainCfg = chainCfg
	g.dirty = true
	g.mu.Unlock()

	g.logger.Info("chain configuration updated",
		"max_block_cpu_usage", chainCfg.MaxBlockCPUUsage,
		"max_block_net_usage", chainCfg.MaxBlockNetUsage,
	)
	return nil
}

// FinalizeBlock runs the end-of-block sequence for blockNum: staged
// account limit changes are settled into the totals, any pending block
// parameter change is applied, and the block's aggregate usage is folded
// into the elastic averages.
func (g *Governor) FinalizeBlock(ctx context.Context, blockNum uint32) error {
	if err := g.mgr.ProcessAccountLimitUpdates(); err != nil {
		return fmt.Errorf("settling account limits: %w", err)
	}

	if err := g.applyPendingParams(); err != nil {
		return err
	}

	// Capture the block's usage before ProcessBlockUsage resets it.
	state := g.mgr.Ledger().State()
	cpuUsed := state.PendingCPUUsage
	netUsed := state.PendingNetUsage

	if err := g.mgr.ProcessBlockUsage(blockNum); err != nil {
		return fmt.Errorf("processing block usage: %w", err)
	}

	if g.recorder != nil {
		usage := BlockUsage{
			BlockNum:        blockNum,
			CPUUsage:        cpuUsed,
			NetUsage:        netUsed,
			VirtualCPULimit: state.VirtualCPULimit,
			VirtualNetLimit: state.VirtualNetLimit,
			FinalizedAt:     time.Now().UTC(),
		}
		if err := g.recorder.RecordBlockUsage(ctx, usage); err != nil {
			g.logger.Warn("failed to record block usage", "block_num", blockNum, "error", err)
		}
	}

	return nil
}

func (g *Governor) applyPendingParams() error {
	g.mu.Lock()
	dirty := g.dirty
	cfg := g.chainCfg
	g.dirty = false
	g.mu.Unlock()

	if !dirty {
		return nil
	}

	cpu, net, err := BlockParams(cfg)
	if err != nil {
		return fmt.Errorf("deriving block parameters: %w", err)
	}
	if err := g.mgr.SetBlockParameters(cpu, net); err != nil {
		return fmt.Errorf("applying block parameters: %w", err)
	}

	g.logger.Debug("block parameters applied",
		"cpu_target", cpu.Target, "cpu_max", cpu.Max,
		"net_target", net.Target, "net_max", net.Max,
	)
	return nil
}
