package diag

import (
	"iter"
	"maps"
	"slices"
	"sync"
)

// Collector is a [Sink] that keeps what it receives in memory.
type Collector interface {
	Sink
	// Size returns the number of diagnostics in the collector.
	Size() int
	// Pushes returns the number of pushes made to the collector, which can be different from
	// Size if the collector merges diagnostics.
	Pushes() int
	// Iter returns a sequence of all diagnostics in the collector.
	Iter() iter.Seq[Diagnostic]
	// Reset clears the collector.
	Reset()
}

var (
	_ Collector = (*AppendingCollector)(nil)
	_ Collector = (*MergingCollector)(nil)
)

// AppendingCollector keeps every diagnostic in push order.
type AppendingCollector struct {
	mu    sync.Mutex
	items []Diagnostic
}

func Appending() *AppendingCollector {
	return &AppendingCollector{
		items: make([]Diagnostic, 0),
	}
}

func (c *AppendingCollector) Push(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

func (c *AppendingCollector) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *AppendingCollector) Pushes() int {
	return c.Size()
}

// Iter iterates over a snapshot of the collected diagnostics.
func (c *AppendingCollector) Iter() iter.Seq[Diagnostic] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Values(slices.Clone(c.items))
}

func (c *AppendingCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
	c.items = c.items[:0]
}

type key struct {
	variable string
	kind     Kind
}

// MergingCollector keeps one diagnostic per variable and kind. Repeated pushes add up their
// counts and keep the latest message.
type MergingCollector struct {
	mu     sync.Mutex
	items  map[key]Diagnostic
	pushes int
}

func Merging() *MergingCollector {
	return &MergingCollector{
		items: make(map[key]Diagnostic, 0),
	}
}

func (c *MergingCollector) Push(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pushes++
	k := key{variable: d.Variable, kind: d.Kind}
	if existing, ok := c.items[k]; ok {
		d.Count += existing.Count
	}
	c.items[k] = d
}

func (c *MergingCollector) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MergingCollector) Pushes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushes
}

// Iter iterates over a snapshot of the collected diagnostics in no particular order.
func (c *MergingCollector) Iter() iter.Seq[Diagnostic] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Values(slices.Collect(maps.Values(c.items)))
}

func (c *MergingCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
	c.pushes = 0
}
