// This package contains a chunk-distributed [Array]: an array partitioned along its first
// dimension into blocks that are computed independently and in parallel.
package chunked

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/dtype"
)

// Array is an array made of blocks stacked along the first dimension.
//
// Elementwise transforms are applied per block (see [Array.MapBlocks]), so a pipeline of lazy
// transforms over a chunked array stays chunked and only ever holds the blocks being computed.
type Array struct {
	cfg    *Config
	dt     dtype.DType
	shape  []int
	blocks []array.Array
}

var _ array.BlockMapper = (*Array)(nil)

// New creates an Array from blocks. Blocks must share dtype and every dimension but the first.
//
// Default configuration:
//   - Workers: runtime.GOMAXPROCS(0)
func New(blocks []array.Array, configFuncs ...ConfigFunc) (*Array, error) {
	cfg := &Config{}
	cfg.Workers(runtime.GOMAXPROCS(0))
	for _, cf := range configFuncs {
		cf(cfg)
	}
	return build(cfg, blocks)
}

// Split partitions src into blocks of at most rows rows along the first dimension. Every block is
// produced by src.Index, so lazy sources stay lazy.
func Split(src array.Array, rows int, configFuncs ...ConfigFunc) (*Array, error) {
	if rows < 1 {
		panic("rows can't be < 1")
	}
	shape := src.Shape()
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: can't split a scalar", array.ErrShape)
	}

	blocks := make([]array.Array, 0, shape[0]/rows+1)
	for start := 0; start < shape[0] || len(blocks) == 0; start += rows {
		stop := min(start+rows, shape[0])
		b, err := src.Index(array.Range{Start: start, Stop: stop})
		if err != nil {
			return nil, fmt.Errorf("split block at %d: %w", start, err)
		}
		blocks = append(blocks, b)
	}

	return New(blocks, configFuncs...)
}

func build(cfg *Config, blocks []array.Array) (*Array, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no blocks", array.ErrShape)
	}

	first := blocks[0]
	shape := slices.Clone(first.Shape())
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: blocks can't be scalars", array.ErrShape)
	}
	shape[0] = 0

	for i, b := range blocks {
		if b.DType() != first.DType() {
			return nil, fmt.Errorf("%w: block %d is %s, block 0 is %s", array.ErrDTypeMismatch, i, b.DType(), first.DType())
		}
		s := b.Shape()
		if len(s) != len(shape) || !slices.Equal(s[1:], shape[1:]) {
			return nil, fmt.Errorf("%w: block %d has shape %v, block 0 has %v", array.ErrShape, i, s, first.Shape())
		}
		shape[0] += s[0]
	}

	return &Array{
		cfg:    cfg,
		dt:     first.DType(),
		shape:  shape,
		blocks: slices.Clone(blocks),
	}, nil
}

func (a *Array) DType() dtype.DType {
	return a.dt
}

func (a *Array) Shape() []int {
	return a.shape
}

// Blocks returns the blocks of the array in order.
func (a *Array) Blocks() []array.Array {
	return slices.Clone(a.blocks)
}

// Chunks returns the number of rows of every block.
func (a *Array) Chunks() []int {
	chunks := make([]int, len(a.blocks))
	for i, b := range a.blocks {
		chunks[i] = b.Shape()[0]
	}
	return chunks
}

// MapBlocks returns a chunked array with fn deferred on every block.
func (a *Array) MapBlocks(fn array.Func, dt dtype.DType) array.Array {
	blocks := make([]array.Array, len(a.blocks))
	for i, b := range a.blocks {
		blocks[i] = array.Defer(b, fn, dt)
	}
	return &Array{
		cfg:    a.cfg,
		dt:     dt,
		shape:  a.shape,
		blocks: blocks,
	}
}

// Index selects rows across blocks and passes the remaining ranges to every selected block. The
// result is chunked as well.
func (a *Array) Index(ranges ...array.Range) (array.Array, error) {
	if len(ranges) == 0 {
		return a, nil
	}

	rows := ranges[0]
	stop := rows.Stop
	if stop < 0 {
		stop = a.shape[0]
	}
	if rows.Start < 0 || rows.Start > stop || stop > a.shape[0] {
		return nil, fmt.Errorf("%w: [%d:%d] of dimension with length %d", array.ErrIndex, rows.Start, rows.Stop, a.shape[0])
	}

	var (
		blocks = make([]array.Array, 0)
		rest   = ranges[1:]
		offset = 0
	)
	for i, b := range a.blocks {
		n := b.Shape()[0]
		lo, hi := max(rows.Start, offset), min(stop, offset+n)
		offset += n
		if lo >= hi {
			continue
		}
		sub, err := b.Index(append([]array.Range{{Start: lo - (offset - n), Stop: hi - (offset - n)}}, rest...)...)
		if err != nil {
			return nil, fmt.Errorf("index block %d: %w", i, err)
		}
		blocks = append(blocks, sub)
	}

	if len(blocks) == 0 {
		// Keep an empty block so the result still knows its trailing shape.
		empty, err := a.blocks[0].Index(append([]array.Range{{Start: 0, Stop: 0}}, rest...)...)
		if err != nil {
			return nil, fmt.Errorf("index block 0: %w", err)
		}
		blocks = append(blocks, empty)
	}

	return build(a.cfg, blocks)
}

// Materialize computes all blocks in parallel, bounded by [Config.Workers], and joins them.
// Scheduling stops after the first failing block.
func (a *Array) Materialize() (*array.Dense, error) {
	parts := make([]*array.Dense, len(a.blocks))

	group, ctx := errgroup.WithContext(context.Background())
	group.SetLimit(a.cfg.workers)
	for i, b := range a.blocks {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := b.Materialize()
			if err != nil {
				return fmt.Errorf("materialize block %d: %w", i, err)
			}
			parts[i] = d
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return array.Concat(parts...)
}

func (a *Array) String() string {
	return fmt.Sprintf("Chunked(%s%v, chunks=%v)", a.dt, a.shape, a.Chunks())
}
