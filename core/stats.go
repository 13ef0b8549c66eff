package core

import (
	"encoding/json"
	"fmt"
)

// Stats is a snapshot of server state
type Stats struct {
	State             string        `json:"state"`
	Addr              string        `json:"addr,omitempty"`
	ActiveConnections int           `json:"active_connections"`
	Routes            int           `json:"routes"`
	BytePool          BytePoolStats `json:"byte_pool"`
}

type BytePoolStats struct {
	Gets    uint64  `json:"gets"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns a snapshot of server state
func (e *Engine) Stats() Stats {
	stats := Stats{
		State:             e.State().String(),
		ActiveConnections: e.ActiveConnections(),
		Routes:            e.router.Len(),
	}
	if addr := e.Addr(); addr != nil {
		stats.Addr = addr.String()
	}

	bp := e.bytePool.Stats()
	stats.BytePool = BytePoolStats{Gets: bp.Gets, Misses: bp.Misses}
	if bp.Gets > 0 {
		stats.BytePool.HitRate = float64(bp.Gets-bp.Misses) / float64(bp.Gets)
	}

	return stats
}

// StatsJSON returns Stats as indented JSON
func (e *Engine) StatsJSON() string {
	data, _ := json.MarshalIndent(e.Stats(), "", "  ")
	return string(data)
}

// StatsText returns Stats as human-readable text
func (e *Engine) StatsText() string {
	s := e.Stats()
	return fmt.Sprintf(`Server Statistics
=================

State:       %s
Address:     %s
Connections: %d
Routes:      %d

Read Buffer Pool:
  Gets:     %d
  Misses:   %d
  Hit Rate: %.2f%%
`,
		s.State, s.Addr, s.ActiveConnections, s.Routes,
		s.BytePool.Gets, s.BytePool.Misses, s.BytePool.HitRate*100,
	)
}
