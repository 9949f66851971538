package main

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/gckit/heap/scan"
	"github.com/joshuapare/gckit/internal/config"
	"github.com/joshuapare/gckit/pkg/gc"
)

var (
	statsIterations int
	statsSeed       uint64
	statsMaxSize    bytesize.ByteSize
	statsRetain     int
)

func init() {
	cmd := newStatsCmd()
	cmd.Flags().IntVar(&statsIterations, "iterations", 0, "Allocations to perform (overrides config)")
	cmd.Flags().Uint64Var(&statsSeed, "seed", 0, "Random seed (overrides config)")
	cmd.Flags().Var(&statsMaxSize, "max-size", "Largest allocation, e.g. 4KB (overrides config)")
	cmd.Flags().IntVar(&statsRetain, "retain-every", -1, "Keep every Nth allocation reachable (overrides config)")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Run a churn workload and show heap statistics",
		Long: `The stats command runs a seeded allocation workload against a fresh
heap and reports allocator and collector counters. Every Nth allocation is
kept reachable on the machine stack; everything else becomes garbage.

Example:
  gcctl stats
  gcctl stats --iterations 100000 --max-size 4KB
  gcctl stats --config heap.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args)
		},
	}
	return cmd
}

// StatsReport is the JSON form of the stats output.
type StatsReport struct {
	Iterations   int    `json:"iterations,omitempty"`
	Elapsed      string `json:"elapsed,omitempty"`
	Segments     int    `json:"segments"`
	SegmentBytes uint64 `json:"segment_bytes"`
	MappedBytes  int64  `json:"mapped_bytes"`
	FreeBlocks   int    `json:"free_blocks"`
	FreeBytes    uint64 `json:"free_bytes"`
	Roots        int    `json:"roots"`

	AllocCalls      int    `json:"alloc_calls"`
	AllocFailed     int    `json:"alloc_failed"`
	ExactFits       int    `json:"exact_fits"`
	Splits          int    `json:"splits"`
	Coalesces       int    `json:"coalesces"`
	Grows           int    `json:"grows"`
	BytesAllocated  uint64 `json:"bytes_allocated"`
	Collections     int    `json:"collections"`
	Reclaimed       int    `json:"reclaimed_blocks"`
	ReclaimedBytes  uint64 `json:"reclaimed_bytes"`
	LastMarked      int    `json:"last_marked"`
	TotalPauseNanos int64  `json:"total_pause_ns"`
}

func newStatsReport(h *gc.Heap) StatsReport {
	s := h.Stats()
	return StatsReport{
		Segments:        s.Segments,
		SegmentBytes:    s.SegmentBytes,
		MappedBytes:     s.MappedBytes,
		FreeBlocks:      s.FreeBlocks,
		FreeBytes:       s.FreeBytes,
		Roots:           s.Roots,
		AllocCalls:      s.Alloc.AllocCalls,
		AllocFailed:     s.Alloc.AllocFailed,
		ExactFits:       s.Alloc.ExactFits,
		Splits:          s.Alloc.SplitCount,
		Coalesces:       s.Alloc.CoalesceForward + s.Alloc.CoalesceBackward,
		Grows:           s.Alloc.GrowCalls,
		BytesAllocated:  s.Alloc.BytesAllocated,
		Collections:     s.Collector.Cycles,
		Reclaimed:       s.Collector.TotalReclaimed,
		ReclaimedBytes:  s.Collector.TotalReclaimedBytes,
		LastMarked:      s.Collector.LastMarked,
		TotalPauseNanos: s.Collector.TotalPause.Nanoseconds(),
	}
}

// applyStatsFlags overrides the workload section with explicit flags.
func applyStatsFlags(cfg *config.Config) error {
	w := &cfg.Workload
	if statsIterations > 0 {
		w.Iterations = statsIterations
	}
	if statsSeed != 0 {
		w.Seed = statsSeed
	}
	if statsMaxSize != 0 {
		w.MaxSize = config.Size(statsMaxSize)
	}
	if statsRetain >= 0 {
		w.RetainEvery = statsRetain
	}
	return cfg.Validate()
}

func runStats(_ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyStatsFlags(cfg); err != nil {
		return err
	}

	h, err := newHeap(cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	start := time.Now()
	if err := churn(h, cfg.Workload); err != nil {
		return err
	}
	elapsed := time.Since(start)

	report := newStatsReport(h)
	report.Iterations = cfg.Workload.Iterations
	report.Elapsed = elapsed.String()

	if jsonOut {
		return printJSON(report)
	}
	printStatsReport(report)
	return nil
}

// churn allocates cfg.Iterations blocks of random size. Retained blocks are
// pushed on the machine stack; when the stack is full the oldest half is
// released.
func churn(h *gc.Heap, w config.WorkloadConfig) error {
	m := h.Machine()
	rng := rand.New(rand.NewPCG(w.Seed, w.Seed^0x9E3779B97F4A7C15))
	span := uint64(w.MaxSize - w.MinSize + 1)

	for i := range w.Iterations {
		n := uint64(w.MinSize) + rng.Uint64N(span)
		p, err := h.Alloc(n)
		if err != nil {
			return err
		}
		if m == nil || w.RetainEvery == 0 || i%w.RetainEvery != 0 {
			continue
		}
		if err := m.Push(uint64(p)); errors.Is(err, scan.ErrStackOverflow) {
			for range m.Depth() / 2 {
				if _, err := m.Pop(); err != nil {
					return err
				}
			}
			err = m.Push(uint64(p))
			if err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	printVerbose("Workload done: %s allocations, stack depth %d\n",
		numbers.Sprintf("%d", w.Iterations), depth(m))
	return nil
}

func depth(m *scan.Machine) int {
	if m == nil {
		return 0
	}
	return m.Depth()
}

func printStatsReport(r StatsReport) {
	n := func(v any) string { return numbers.Sprintf("%d", v) }

	printInfo("%s\n", colorize(colorBold, "Workload"))
	if r.Iterations > 0 {
		printInfo("  Iterations:       %s (%s)\n", n(r.Iterations), r.Elapsed)
	}
	printInfo("%s\n", colorize(colorBold, "Heap"))
	printInfo("  Segments:         %s (%s)\n", n(r.Segments), bytesize.New(float64(r.SegmentBytes)))
	printInfo("  Mapped:           %s\n", bytesize.New(float64(r.MappedBytes)))
	printInfo("  Free:             %s blocks, %s\n", n(r.FreeBlocks), bytesize.New(float64(r.FreeBytes)))
	printInfo("%s\n", colorize(colorBold, "Allocator"))
	printInfo("  Allocations:      %s (failed %s)\n", n(r.AllocCalls), n(r.AllocFailed))
	printInfo("  Exact fits:       %s\n", n(r.ExactFits))
	printInfo("  Splits:           %s\n", n(r.Splits))
	printInfo("  Coalesces:        %s\n", n(r.Coalesces))
	printInfo("  Grows:            %s\n", n(r.Grows))
	printInfo("  Bytes allocated:  %s\n", bytesize.New(float64(r.BytesAllocated)))
	printInfo("%s\n", colorize(colorBold, "Collector"))
	printInfo("  Collections:      %s\n", n(r.Collections))
	printInfo("  Reclaimed:        %s blocks, %s\n", n(r.Reclaimed), bytesize.New(float64(r.ReclaimedBytes)))
	printInfo("  Live after last:  %s blocks\n", n(r.LastMarked))
	printInfo("  Total pause:      %s\n", time.Duration(r.TotalPauseNanos))
}
