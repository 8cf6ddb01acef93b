// Package node implements the cluster Node Registry: CRUD over cluster
// members and node groups, plus a cron-scheduled heartbeat that keeps the
// local node's registration current.
package node

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	gopsutilnet "github.com/shirou/gopsutil/v3/net"

	"github.com/nanocl-project/nanocld/internal/logging"
	"github.com/nanocl-project/nanocld/internal/model"
	"github.com/nanocl-project/nanocld/internal/store"
)

// DetectIPAddress returns the first non-loopback IPv4 address found on any
// up interface, used to self-register when the daemon isn't told its
// address explicitly.
func DetectIPAddress() (string, error) {
	ifaces, err := gopsutilnet.Interfaces()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		up := false
		for _, flag := range iface.Flags {
			if flag == "up" {
				up = true
			}
		}
		if !up {
			continue
		}
		for _, addr := range iface.Addrs {
			ip, _, err := net.ParseCIDR(addr.Addr)
			if err != nil {
				ip = net.ParseIP(strings.SplitN(addr.Addr, "/", 2)[0])
			}
			if ip == nil || ip.IsLoopback() || ip.To4() == nil {
				continue
			}
			return ip.String(), nil
		}
	}
	return "", fmt.Errorf("no non-loopback IPv4 address found")
}

// Registry wraps node and node-group CRUD.
type Registry struct {
	store *store.Store
}

func NewRegistry(s *store.Store) *Registry {
	return &Registry{store: s}
}

// Register returns the local node's row, inserting it when reading it fails
// (e.g. it does not exist yet). Joining an already-registered cluster calls
// this once at startup. An existing row is returned unchanged, so an IP
// address that changed across restarts is not written back.
func (r *Registry) Register(ctx context.Context, name, ipAddress string) (model.Node, error) {
	if existing, err := r.store.GetNode(ctx, name); err == nil {
		return existing, nil
	}
	return r.store.CreateNode(ctx, model.Node{Name: name, IPAddress: ipAddress, CreatedAt: time.Now().UTC()})
}

// JoinGroup links the node to a placement group, used by Replication's
// node-group targeting modes.
func (r *Registry) JoinGroup(ctx context.Context, nodeName, groupName string) error {
	if _, err := r.store.CreateNodeGroup(ctx, groupName); err != nil {
		// Already exists is fine; LinkNodeToGroup below is the operation that matters.
		_ = err
	}
	return r.store.LinkNodeToGroup(ctx, nodeName, groupName)
}

// Heartbeat re-touches the local node's registration on a cron schedule,
// using robfig/cron/v3 rather than a hand-rolled ticker so the schedule
// string is the same expressive cron syntax operators already use for
// other periodic maintenance.
type Heartbeat struct {
	cron *cron.Cron
	reg  *Registry
	log  *logging.Logger

	mu      sync.Mutex
	running bool
}

// NewHeartbeat builds a Heartbeat that re-registers name/ipAddress on the
// schedule passed to Start. The cron instance uses the standard 5-field
// parser, which also accepts descriptors such as "@every 5s" (the form
// cmd/nanocld uses); 6-field expressions with a seconds column are rejected.
func NewHeartbeat(reg *Registry, log *logging.Logger) *Heartbeat {
	return &Heartbeat{cron: cron.New(), reg: reg, log: log}
}

// Start schedules the heartbeat and begins running it in the background.
// It returns an error if schedule fails to parse, or if already started.
func (h *Heartbeat) Start(ctx context.Context, schedule, name, ipAddress string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return fmt.Errorf("heartbeat already running")
	}

	_, err := h.cron.AddFunc(schedule, func() {
		if _, err := h.reg.Register(ctx, name, ipAddress); err != nil {
			h.log.Errorf("heartbeat for node %s failed: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("parse heartbeat schedule: %w", err)
	}

	h.cron.Start()
	h.running = true
	return nil
}

// Stop halts the heartbeat and waits for any in-flight run to finish.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	<-h.cron.Stop().Done()
	h.running = false
}
