// Package popup decides where the inactivity lead-capture overlay may appear.
package popup

import (
	"strings"
	"time"
)

// Phase identifies which render pass is asking.
type Phase int

const (
	// PhaseServer is the initial server-rendered pass. Nothing is shown.
	PhaseServer Phase = iota
	// PhaseClient is the pass after the browser signals its first paint.
	PhaseClient
)

// DefaultInactivityDelay is used when Config.InactivityDelay is not set.
const DefaultInactivityDelay = 30 * time.Second

// Config lists the paths the overlay is allowed on.
type Config struct {
	EnabledPaths    []string
	InactivityDelay time.Duration
}

// ParsePaths splits a comma-separated list of paths, dropping blanks.
func ParsePaths(s string) []string {
	var paths []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Gate evaluates popup visibility. It holds no per-visitor state.
type Gate struct {
	enabled map[string]bool
	delay   time.Duration
}

// NewGate builds a gate from cfg.
func NewGate(cfg Config) *Gate {
	g := &Gate{
		enabled: make(map[string]bool, len(cfg.EnabledPaths)),
		delay:   cfg.InactivityDelay,
	}
	for _, p := range cfg.EnabledPaths {
		g.enabled[p] = true
	}
	if g.delay <= 0 {
		g.delay = DefaultInactivityDelay
	}
	return g
}

// Visible reports whether the overlay should be mounted for path.
// The server pass never shows it; the client pass requires an exact match
// against the allow-list.
func (g *Gate) Visible(phase Phase, path string) bool {
	if phase != PhaseClient {
		return false
	}
	return g.enabled[path]
}

// Delay is how long the visitor must be idle before the overlay opens.
func (g *Gate) Delay() time.Duration { return g.delay }

// Paths returns the configured allow-list, in no particular order.
func (g *Gate) Paths() []string {
	paths := make([]string, 0, len(g.enabled))
	for p := range g.enabled {
		paths = append(paths, p)
	}
	return paths
}
