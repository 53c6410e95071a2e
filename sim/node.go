package sim

import (
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/quorumlab/faultprobe/fault"
)

// node is one simulated cluster member. Restarting swaps its startup
// arguments and bumps its generation, invalidating every session that was
// connected to it.
type node struct {
	id uint64

	mu            sync.RWMutex
	up            bool
	generation    uint64
	readyAt       time.Time
	rejectPattern glob.Glob
	rejectRaw     string
}

func (n *node) start(args []string, readyDelay time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.up = true
	n.generation++
	n.readyAt = time.Now().Add(readyDelay)
	n.rejectPattern = nil
	n.rejectRaw = ""

	for _, arg := range args {
		if pattern, ok := fault.ParseRejectWritesArg(arg); ok {
			// The flag is trusted input from the controller; an invalid
			// pattern simply never matches.
			if g, err := glob.Compile(pattern); err == nil {
				n.rejectPattern = g
				n.rejectRaw = pattern
			}
		}
	}
}

func (n *node) stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.up = false
}

func (n *node) isUp() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.up
}

func (n *node) isReady() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.up && !time.Now().Before(n.readyAt)
}

func (n *node) currentGeneration() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.generation
}

// rejectsWrites reports whether the node refuses writes for the keyspace.
// The scope is the keyspace pattern it was started with; everything else on
// the node is unaffected.
func (n *node) rejectsWrites(keyspace string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.rejectPattern == nil {
		return false
	}
	return n.rejectPattern.Match(keyspace)
}

func (n *node) describeArgs() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.rejectRaw == "" {
		return ""
	}
	return strings.TrimSpace(fault.RejectWritesArg(n.rejectRaw))
}
