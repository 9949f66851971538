package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/gckit/internal/config"
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/pkg/gc"
)

var (
	testRun string
)

func init() {
	cmd := newTestCmd()
	cmd.Flags().StringVar(&testRun, "run", "", "Run only the named scenario")
	rootCmd.AddCommand(cmd)
}

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the built-in smoke scenarios",
		Long: `The test command runs the built-in heap scenarios, each against a
fresh heap, and reports pass/fail per scenario:

  malloc-free   three small blocks freed out of order coalesce completely
  grow          an oversized request adds a segment sized to the request
  collect       a block is reclaimed once its last reference is dropped
  load          2000 allocations of garbage keep the heap bounded

Example:
  gcctl test
  gcctl test --run load
  gcctl test --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(args)
		},
	}
	return cmd
}

// scenario is one smoke test run against a fresh heap.
type scenario struct {
	name string
	fn   func(h *gc.Heap) error
}

var scenarios = []scenario{
	{"malloc-free", scenarioMallocFree},
	{"grow", scenarioGrow},
	{"collect", scenarioCollect},
	{"load", scenarioLoad},
}

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

var errScenariosFailed = errors.New("scenarios failed")

func runTest(_ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var results []ScenarioResult
	failed := 0
	for _, sc := range scenarios {
		if testRun != "" && sc.name != testRun {
			continue
		}
		printVerbose("Running %s\n", sc.name)
		res := runScenario(cfg, sc)
		if !res.Passed {
			failed++
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		return fmt.Errorf("no scenario named %q", testRun)
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Passed {
				printInfo("%s  %-12s (%s)\n", colorize(colorGreen, "PASS"), res.Name, res.Duration)
			} else {
				printInfo("%s  %-12s %s\n", colorize(colorRed, "FAIL"), res.Name, res.Error)
			}
		}
		printInfo("%d/%d scenarios passed\n", len(results)-failed, len(results))
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errScenariosFailed, failed, len(results))
	}
	return nil
}

func runScenario(cfg *config.Config, sc scenario) ScenarioResult {
	res := ScenarioResult{Name: sc.name}

	h, err := newHeap(cfg)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer h.Close()

	start := time.Now()
	err = sc.fn(h)
	res.Duration = time.Since(start).Round(time.Microsecond).String()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Passed = true
	return res
}

func scenarioMallocFree(h *gc.Heap) error {
	var p [3]gc.Addr
	for i := range p {
		var err error
		if p[i], err = h.Alloc(10); err != nil {
			return err
		}
		if n, _ := h.Size(p[i]); n != 16 {
			return fmt.Errorf("block %d: size %d, want 16", i, n)
		}
	}

	h.Free(p[0])
	h.Free(p[2])
	h.Free(p[1])

	free := h.FreeBlocks()
	segs := h.Segments()
	switch {
	case len(free) != 1:
		return fmt.Errorf("free list has %d blocks, want 1", len(free))
	case free[0].Next != free[0].Addr:
		return fmt.Errorf("free list of one block is not self-linked")
	case free[0].Addr != segs[0].Base:
		return fmt.Errorf("free block at 0x%x, want segment base 0x%x", uint64(free[0].Addr), uint64(segs[0].Base))
	case segs[0].Size != format.MinSegmentSize:
		return fmt.Errorf("segment size %d, want %d", segs[0].Size, format.MinSegmentSize)
	case h.Allocated(p[0]):
		return fmt.Errorf("freed block still allocated")
	}
	return nil
}

func scenarioGrow(h *gc.Heap) error {
	if _, err := h.Alloc(8); err != nil {
		return err
	}
	p, err := h.Alloc(format.MinSegmentSize + 80)
	if err != nil {
		return err
	}
	defer h.Free(p)

	segs := h.Segments()
	if len(segs) != 2 {
		return fmt.Errorf("%d segments, want 2", len(segs))
	}
	if want := uint64(format.MinSegmentSize + 80 + format.HeaderSize); segs[1].Size != want {
		return fmt.Errorf("segment size %d, want %d", segs[1].Size, want)
	}
	return nil
}

func scenarioCollect(h *gc.Heap) error {
	m := h.Machine()
	if m == nil {
		return fmt.Errorf("no machine")
	}

	p, err := h.Alloc(100)
	if err != nil {
		return err
	}
	if err := m.Push(uint64(p)); err != nil {
		return err
	}
	h.Collect()
	if !h.Allocated(p) {
		return fmt.Errorf("referenced block reclaimed")
	}

	if _, err := m.Pop(); err != nil {
		return err
	}
	h.Collect()
	if h.Allocated(p) {
		return fmt.Errorf("unreferenced block survived")
	}
	return nil
}

func scenarioLoad(h *gc.Heap) error {
	var p gc.Addr
	for i := range 2000 {
		var err error
		if p, err = h.Alloc(100); err != nil {
			return fmt.Errorf("allocation %d: %w", i, err)
		}
	}
	if !h.Allocated(p) {
		return fmt.Errorf("last allocation not live")
	}
	if n := len(h.Segments()); n > 2 {
		return fmt.Errorf("heap grew to %d segments", n)
	}
	s := h.Stats()
	printVerbose("  load: %s collections, %s blocks reclaimed\n",
		numbers.Sprintf("%d", s.Collector.Cycles), numbers.Sprintf("%d", s.Collector.TotalReclaimed))
	return nil
}
