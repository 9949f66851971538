package alloc

// Collector runs one full collection cycle. The allocator invokes it on the
// first failed search of a request, before growing the heap.
type Collector interface {
	Collect()
}

// CollectorFunc adapts a function to the Collector interface.
type CollectorFunc func()

// Collect calls f.
func (f CollectorFunc) Collect() { f() }
