package collect

import (
	"fmt"
	"io"
	"time"
)

// cycleStats accumulates counters for the cycle in progress.
type cycleStats struct {
	candidates     int
	marked         int
	markedBytes    uint64
	reclaimed      int
	reclaimedBytes uint64
}

// Stats holds collector counters.
type Stats struct {
	Cycles int // completed cycles

	LastCandidates     int    // words examined by the last cycle
	LastMarked         int    // blocks that survived the last cycle
	LastMarkedBytes    uint64 // payload bytes that survived the last cycle
	LastReclaimed      int    // blocks reclaimed by the last cycle
	LastReclaimedBytes uint64 // payload bytes reclaimed by the last cycle
	LastPause          time.Duration

	TotalReclaimed      int
	TotalReclaimedBytes uint64
	TotalPause          time.Duration
}

func (s *Stats) record(c cycleStats, pause time.Duration) {
	s.Cycles++
	s.LastCandidates = c.candidates
	s.LastMarked = c.marked
	s.LastMarkedBytes = c.markedBytes
	s.LastReclaimed = c.reclaimed
	s.LastReclaimedBytes = c.reclaimedBytes
	s.LastPause = pause
	s.TotalReclaimed += c.reclaimed
	s.TotalReclaimedBytes += c.reclaimedBytes
	s.TotalPause += pause
}

// Stats returns a copy of the counters.
func (c *Collector) Stats() Stats {
	return c.stats
}

// PrintStats writes collector statistics to w.
func (c *Collector) PrintStats(w io.Writer) {
	s := c.stats
	fmt.Fprintf(w, "\n=== COLLECTOR STATISTICS ===\n")
	fmt.Fprintf(w, "Cycles:             %d\n", s.Cycles)
	fmt.Fprintf(w, "Total reclaimed:    %d blocks (%d bytes)\n", s.TotalReclaimed, s.TotalReclaimedBytes)
	fmt.Fprintf(w, "Total pause:        %s\n", s.TotalPause)
	if s.Cycles > 0 {
		fmt.Fprintf(w, "\nLast cycle:\n")
		fmt.Fprintf(w, "  Candidates:       %d\n", s.LastCandidates)
		fmt.Fprintf(w, "  Marked:           %d (%d bytes)\n", s.LastMarked, s.LastMarkedBytes)
		fmt.Fprintf(w, "  Reclaimed:        %d (%d bytes)\n", s.LastReclaimed, s.LastReclaimedBytes)
		fmt.Fprintf(w, "  Pause:            %s\n", s.LastPause)
	}
	fmt.Fprintf(w, "============================\n\n")
}
