// Package config loads gcctl configuration files.
//
// A configuration file is YAML. Sizes accept either a plain byte count or a
// human-readable size such as "64KB" or "1.5 MB" (1 KB = 1024 bytes):
//
//	heap:
//	  segment_limit: 10000
//	  root_limit: 1000
//	  max_heap: 256MB
//	  stack_size: 64KB
//	  stack_grows_up: false
//	workload:
//	  iterations: 2000
//	  min_size: 16
//	  max_size: 256B
//	  retain_every: 10
//	  seed: 1
//
// Unknown keys are rejected. Missing keys keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/pkg/gc"
)

// ErrInvalid indicates a configuration that parsed but cannot be used.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the root of a configuration file.
type Config struct {
	Heap     HeapConfig     `yaml:"heap"`
	Workload WorkloadConfig `yaml:"workload"`
}

// HeapConfig maps onto gc.Options.
type HeapConfig struct {
	SegmentLimit int  `yaml:"segment_limit"`
	RootLimit    int  `yaml:"root_limit"`
	MaxHeap      Size `yaml:"max_heap"` // 0 = unlimited
	StackSize    Size `yaml:"stack_size"`
	StackGrowsUp bool `yaml:"stack_grows_up"`
}

// WorkloadConfig drives the churn workload of `gcctl stats`.
type WorkloadConfig struct {
	Iterations  int    `yaml:"iterations"`
	MinSize     Size   `yaml:"min_size"`
	MaxSize     Size   `yaml:"max_size"`
	RetainEvery int    `yaml:"retain_every"` // keep every Nth allocation on the stack (0 = none)
	Seed        uint64 `yaml:"seed"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Heap: HeapConfig{
			SegmentLimit: format.SegmentLimit,
			RootLimit:    format.RootLimit,
			StackSize:    Size(format.DefaultStackSize),
		},
		Workload: WorkloadConfig{
			Iterations:  2000,
			MinSize:     16,
			MaxSize:     256,
			RetainEvery: 10,
			Seed:        1,
		},
	}
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Heap.SegmentLimit < 0:
		return fmt.Errorf("%w: heap.segment_limit %d", ErrInvalid, c.Heap.SegmentLimit)
	case c.Heap.RootLimit < 0:
		return fmt.Errorf("%w: heap.root_limit %d", ErrInvalid, c.Heap.RootLimit)
	case c.Heap.StackSize != 0 && c.Heap.StackSize < format.WordSize:
		return fmt.Errorf("%w: heap.stack_size %s below one word", ErrInvalid, c.Heap.StackSize)
	case c.Workload.Iterations < 0:
		return fmt.Errorf("%w: workload.iterations %d", ErrInvalid, c.Workload.Iterations)
	case c.Workload.MinSize == 0:
		return fmt.Errorf("%w: workload.min_size must be positive", ErrInvalid)
	case c.Workload.MaxSize < c.Workload.MinSize:
		return fmt.Errorf("%w: workload.max_size %s below min_size %s",
			ErrInvalid, c.Workload.MaxSize, c.Workload.MinSize)
	case c.Workload.MaxSize > format.MaxAllocSize:
		return fmt.Errorf("%w: workload.max_size %s", ErrInvalid, c.Workload.MaxSize)
	case c.Workload.RetainEvery < 0:
		return fmt.Errorf("%w: workload.retain_every %d", ErrInvalid, c.Workload.RetainEvery)
	}
	return nil
}

// Options converts the heap section to gc.Options. The fatal handler is
// left to the caller.
func (c *Config) Options() gc.Options {
	return gc.Options{
		SegmentLimit: c.Heap.SegmentLimit,
		RootLimit:    c.Heap.RootLimit,
		MaxHeapBytes: int64(c.Heap.MaxHeap),
		StackSize:    int(c.Heap.StackSize),
		StackGrowsUp: c.Heap.StackGrowsUp,
	}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return buf.Bytes(), nil
}
