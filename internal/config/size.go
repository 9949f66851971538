package config

import (
	"fmt"
	"strconv"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v3"
)

// Size is a byte count that decodes from either an integer or a
// human-readable size string.
type Size uint64

// ParseSize parses "4096", "64KB", "1.5 MB" and the like.
func ParseSize(s string) (Size, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Size(n), nil
	}
	b, err := bytesize.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("config: size %q: %w", s, err)
	}
	return Size(b), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("config: line %d: size must be a scalar", node.Line)
	}
	v, err := ParseSize(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = v
	return nil
}

// MarshalYAML implements yaml.Marshaler. Whole multiples of a unit are
// written with the unit; anything else as a plain count.
func (s Size) MarshalYAML() (any, error) {
	units := []struct {
		size bytesize.ByteSize
		name string
	}{
		{bytesize.GB, "GB"},
		{bytesize.MB, "MB"},
		{bytesize.KB, "KB"},
	}
	for _, u := range units {
		if s != 0 && uint64(s)%uint64(u.size) == 0 {
			return bytesize.ByteSize(s).Format("%.0f", u.name, false), nil
		}
	}
	return uint64(s), nil
}

// String formats the size for humans.
func (s Size) String() string {
	if s < 1024 {
		return strconv.FormatUint(uint64(s), 10) + "B"
	}
	return bytesize.ByteSize(s).String()
}
