package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/internal/format"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want Size
	}{
		{"0", 0},
		{"4096", 4096},
		{"64KB", 64 << 10},
		{"1.5 MB", 3 << 19},
		{"2 megabytes", 2 << 20},
		{"100B", 100},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSize("12 parsecs")
	require.Error(t, err)
	_, err = ParseSize("")
	require.Error(t, err)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	opts := cfg.Options()
	assert.Equal(t, format.SegmentLimit, opts.SegmentLimit)
	assert.Equal(t, format.DefaultStackSize, opts.StackSize)
	assert.Zero(t, opts.MaxHeapBytes)
	assert.Nil(t, opts.Fatal)
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
heap:
  segment_limit: 8
  max_heap: 1MB
  stack_size: 4096
  stack_grows_up: true
workload:
  iterations: 50
  max_size: 2KB
`))
	require.NoError(t, err)

	require.Equal(t, 8, cfg.Heap.SegmentLimit)
	require.Equal(t, format.RootLimit, cfg.Heap.RootLimit, "unset keys keep defaults")
	require.Equal(t, Size(1<<20), cfg.Heap.MaxHeap)
	require.Equal(t, Size(4096), cfg.Heap.StackSize)
	require.True(t, cfg.Heap.StackGrowsUp)
	require.Equal(t, 50, cfg.Workload.Iterations)
	require.Equal(t, Size(2048), cfg.Workload.MaxSize)

	opts := cfg.Options()
	require.Equal(t, int64(1<<20), opts.MaxHeapBytes)
	require.True(t, opts.StackGrowsUp)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		invalid bool
	}{
		{"unknown key", "heap:\n  colour: blue\n", false},
		{"bad size", "heap:\n  max_heap: lots\n", false},
		{"size mapping", "heap:\n  max_heap: {a: 1}\n", false},
		{"negative limit", "heap:\n  segment_limit: -1\n", true},
		{"tiny stack", "heap:\n  stack_size: 4\n", true},
		{"zero min size", "workload:\n  min_size: 0\n", true},
		{"max below min", "workload:\n  min_size: 64\n  max_size: 32\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			if tt.invalid {
				require.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gcctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workload:\n  seed: 42\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(42), cfg.Workload.Seed)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Heap.MaxHeap = 3<<20 + 1<<10
	cfg.Workload.MaxSize = 300

	data, err := cfg.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(data), "stack_size: 64KB")
	require.Contains(t, string(data), "max_heap: 3073KB")
	require.Contains(t, string(data), "max_size: 300")

	back, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, cfg, back)
}

func TestSize_String(t *testing.T) {
	assert.Equal(t, "100B", Size(100).String())
	assert.Equal(t, "64.00KB", Size(64<<10).String())
}
