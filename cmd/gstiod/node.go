package main

import (
	"sync"

	"github.com/gstchain/gstio/pkg/resource"
	"github.com/gstchain/gstio/pkg/server"
)

// node wraps the resource manager with the lock that separates the block
// loop (writer) from the status API (readers). The manager itself is
// single-writer; every mutation in run.go happens under mu.Lock and every
// read here under mu.RLock.
type node struct {
	mu  sync.RWMutex
	mgr *resource.Manager
}

func newNode(mgr *resource.Manager) *node {
	return &node{mgr: mgr}
}

// ChainStatus implements server.StatusSource.
func (n *node) ChainStatus() server.ChainStatus {
	n.mu.RLock()
	defer n.mu.RUnlock()

	state := n.mgr.Ledger().State()
	return server.ChainStatus{
		VirtualBlockCPULimit: n.mgr.GetVirtualBlockCPULimit(),
		VirtualBlockNetLimit: n.mgr.GetVirtualBlockNetLimit(),
		BlockCPULimit:        n.mgr.GetBlockCPULimit(),
		BlockNetLimit:        n.mgr.GetBlockNetLimit(),
		TotalRAMBytes:        state.TotalRAMBytes,
		TotalNetWeight:       state.TotalNetWeight,
		TotalCPUWeight:       state.TotalCPUWeight,
		PrepaidActivated:     n.mgr.PrepaidActivated(),
	}
}

// AccountStatus implements server.StatusSource.
func (n *node) AccountStatus(account string) (server.AccountStatus, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	name := resource.AccountName(account)

	cpu, err := n.mgr.GetAccountCPULimitEx(name, true)
	if err != nil {
		return server.AccountStatus{}, err
	}
	net, err := n.mgr.GetAccountNetLimitEx(name, true)
	if err != nil {
		return server.AccountStatus{}, err
	}
	ramQuota, netWeight, cpuWeight, err := n.mgr.GetAccountLimits(name)
	if err != nil {
		return server.AccountStatus{}, err
	}
	ramUsage, err := n.mgr.GetAccountRAMUsage(name)
	if err != nil {
		return server.AccountStatus{}, err
	}

	return server.AccountStatus{
		Account:        account,
		CPULimit:       server.ResourceView{Used: cpu.Used, Available: cpu.Available, Max: cpu.Max},
		NetLimit:       server.ResourceView{Used: net.Used, Available: net.Available, Max: net.Max},
		RAMQuota:       ramQuota,
		RAMUsage:       ramUsage,
		NetWeight:      netWeight,
		CPUWeight:      cpuWeight,
		PrepaidBalance: n.mgr.GetPrepaidBalance(name),
	}, nil
}
