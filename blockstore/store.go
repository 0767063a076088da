// This package contains a SQLite-backed store of raw variables. Data is saved block by block and
// loaded back as a lazy chunked array whose blocks are read on materialization.
package blockstore

import (
	"errors"
	"fmt"
	"runtime"
	"slices"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"

	"github.com/teenjuna/cfcode"
	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/chunked"
	"github.com/teenjuna/cfcode/codec"
	"github.com/teenjuna/cfcode/codec/gob"
	codecjson "github.com/teenjuna/cfcode/codec/json"
	"github.com/teenjuna/cfcode/codec/msgp"
	"github.com/teenjuna/cfcode/dtype"
	"github.com/teenjuna/cfcode/internal/sqlite"
)

var (
	// ErrNotFound is returned when a variable doesn't exist.
	ErrNotFound = errors.New("variable not found")
	// ErrChecksum is returned when a stored block doesn't match its checksum.
	ErrChecksum = errors.New("block checksum mismatch")
)

// Store saves and loads variables.
//
// A Store can be used from multiple goroutines, and the variables it loads can be materialized
// concurrently.
type Store struct {
	cfg     *Config
	storage *sqlite.Storage
	cache   *lru.Cache[blockKey, *array.Dense]
	codecs  map[string]codec.Codec
}

// stagingPrefix starts the names of variables that are still being saved.
const stagingPrefix = "~saving:"

type blockKey struct {
	name     string
	storedAt int64
	index    int
}

// Open opens a Store with the provided configuration functions.
//
// Default configuration:
//   - File: ":memory:"
//   - Durable: false
//   - Codec: json
//   - CacheSize: 64
//   - Workers: runtime.GOMAXPROCS(0)
func Open(configFuncs ...ConfigFunc) (*Store, error) {
	cfg := &Config{}
	cfg.File(":memory:")
	cfg.Codec(codecjson.New())
	cfg.CacheSize(64)
	cfg.Workers(runtime.GOMAXPROCS(0))
	for _, cf := range configFuncs {
		cf(cfg)
	}

	var cache *lru.Cache[blockKey, *array.Dense]
	if cfg.cacheSize > 0 {
		var err error
		if cache, err = lru.New[blockKey, *array.Dense](cfg.cacheSize); err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
	}

	storage, err := sqlite.New(func(c *sqlite.Config) {
		c.File(cfg.file)
		c.Durable(cfg.durable)
		c.Workers(cfg.workers)
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	codecs := make(map[string]codec.Codec)
	for _, c := range []codec.Codec{codecjson.New(), gob.New(), msgp.New(), cfg.codec} {
		codecs[c.Name()] = c
	}

	store := Store{
		cfg:     cfg,
		storage: storage,
		cache:   cache,
		codecs:  codecs,
	}

	return &store, nil
}

// Save stores v under name, replacing any variable with the same name.
//
// The data is split into blocks of rows rows along the first dimension. With rows set to 0 a
// chunked array keeps its own blocks and any other array is saved as a single block. Blocks are
// materialized and written one at a time.
func (s *Store) Save(name string, v *cfcode.Variable, rows int) error {
	if rows < 0 {
		panic("rows can't be < 0")
	}

	blocks, err := split(v.Data, rows)
	if err != nil {
		return fmt.Errorf("split %q: %w", name, err)
	}

	// The old variable stays readable until every block of the new one is written.
	staging := stagingPrefix + uuid.NewString()
	row, err := s.row(staging, v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", name, err)
	}

	if err := s.storage.CreateVariable(row); err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}

	c := s.cfg.codec.Derive()
	for i, b := range blocks {
		if err := s.saveBlock(c, staging, i, b); err != nil {
			return errors.Join(
				fmt.Errorf("save block %d of %q: %w", i, name, err),
				s.drop(staging),
			)
		}
	}

	if err := s.storage.ReplaceVariable(staging, name); err != nil {
		return errors.Join(
			fmt.Errorf("complete %q: %w", name, err),
			s.drop(staging),
		)
	}
	s.evict(name)

	return nil
}

// Load returns the variable stored under name. Its data is a [chunked.Array] with a block per
// stored block; nothing is read until the data is materialized.
//
// Returns [ErrNotFound] if there is no such variable.
func (s *Store) Load(name string) (*cfcode.Variable, error) {
	row, err := s.storage.GetVariable(name)
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	} else if err != nil {
		return nil, fmt.Errorf("get %q: %w", name, err)
	}

	var (
		dims  []string
		shape []int
	)
	if err := json.Unmarshal([]byte(row.Dims), &dims); err != nil {
		return nil, fmt.Errorf("decode dims of %q: %w", name, err)
	}
	if err := json.Unmarshal([]byte(row.Shape), &shape); err != nil {
		return nil, fmt.Errorf("decode shape of %q: %w", name, err)
	}
	attrs, err := decodeAttrs(row.Attrs)
	if err != nil {
		return nil, fmt.Errorf("decode attrs of %q: %w", name, err)
	}
	encoding, err := decodeAttrs(row.Encoding)
	if err != nil {
		return nil, fmt.Errorf("decode encoding of %q: %w", name, err)
	}
	dt, err := dtype.Parse(row.DType)
	if err != nil {
		return nil, fmt.Errorf("decode dtype of %q: %w", name, err)
	}
	c, ok := s.codecs[row.Codec]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q of %q", row.Codec, name)
	}

	counts, err := s.storage.BlockRows(name)
	if err != nil {
		return nil, fmt.Errorf("get blocks of %q: %w", name, err)
	}

	blocks := make([]array.Array, len(counts))
	for i, n := range counts {
		blocks[i] = &blockRef{
			store: s,
			codec: c,
			key:   blockKey{name: name, storedAt: row.StoredAt.UnixNano(), index: i},
			dt:    dt,
			shape: append([]int{n}, shape[1:]...),
		}
	}

	data, err := chunked.New(blocks, func(c *chunked.Config) {
		c.Workers(s.cfg.workers)
	})
	if err != nil {
		return nil, fmt.Errorf("assemble %q: %w", name, err)
	}

	return cfcode.NewVariable(dims, data, attrs, encoding), nil
}

// Names returns the names of all stored variables in lexical order.
func (s *Store) Names() ([]string, error) {
	return s.storage.Names()
}

// Delete removes the variable stored under name.
//
// Returns [ErrNotFound] if there is no such variable.
func (s *Store) Delete(name string) error {
	err := s.storage.Delete(name)
	if errors.Is(err, sqlite.ErrNotFound) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	} else if err != nil {
		return err
	}

	s.evict(name)

	return nil
}

// Stats returns current store statistics.
func (s *Store) Stats() (*Stats, error) {
	st, err := s.storage.Stats()
	if err != nil {
		return nil, err
	}

	stats := Stats{
		Variables: st.Variables,
		Blocks:    st.Blocks,
		Bytes:     st.Bytes,
	}
	if s.cache != nil {
		stats.Cached = s.cache.Len()
	}

	return &stats, nil
}

// Close closes the underlying database. Variables loaded from the store can't be materialized
// afterwards, unless their blocks are cached.
func (s *Store) Close() error {
	if s.cache != nil {
		s.cache.Purge()
	}
	return s.storage.Close()
}

// Stats represents statistics about the store.
type Stats struct {
	// Variables is the number of stored variables.
	Variables int `json:"variables"`
	// Blocks is the total number of stored blocks.
	Blocks int `json:"blocks"`
	// Bytes is the total size of encoded blocks.
	Bytes int64 `json:"bytes"`
	// Cached is the number of decoded blocks in the cache.
	Cached int `json:"cached"`
}

func (s *Store) row(name string, v *cfcode.Variable) (sqlite.Variable, error) {
	dims, err := json.Marshal(v.Dims)
	if err != nil {
		return sqlite.Variable{}, err
	}
	shape, err := json.Marshal(v.Data.Shape())
	if err != nil {
		return sqlite.Variable{}, err
	}
	attrs, err := encodeAttrs(v.Attrs)
	if err != nil {
		return sqlite.Variable{}, fmt.Errorf("attrs: %w", err)
	}
	encoding, err := encodeAttrs(v.Encoding)
	if err != nil {
		return sqlite.Variable{}, fmt.Errorf("encoding: %w", err)
	}

	return sqlite.Variable{
		Name:     name,
		Dims:     string(dims),
		Attrs:    attrs,
		Encoding: encoding,
		DType:    v.Data.DType().String(),
		Shape:    string(shape),
		Codec:    s.cfg.codec.Name(),
	}, nil
}

func (s *Store) saveBlock(c codec.Codec, name string, index int, block array.Array) error {
	d, err := block.Materialize()
	if err != nil {
		return fmt.Errorf("materialize: %w", err)
	}
	data, err := c.Encode(d)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	return s.storage.PutBlock(sqlite.Block{
		Variable: name,
		Index:    index,
		Rows:     d.Shape()[0],
		Data:     data,
		Checksum: xxh3.Hash(data),
	})
}

// drop removes a partially saved variable.
func (s *Store) drop(name string) error {
	if err := s.storage.Delete(name); err != nil && !errors.Is(err, sqlite.ErrNotFound) {
		return fmt.Errorf("delete partial %q: %w", name, err)
	}
	return nil
}

func (s *Store) evict(name string) {
	if s.cache == nil {
		return
	}
	for _, key := range s.cache.Keys() {
		if key.name == name {
			s.cache.Remove(key)
		}
	}
}

func split(data array.Array, rows int) ([]array.Array, error) {
	if len(data.Shape()) == 0 {
		return nil, fmt.Errorf("%w: can't store a scalar", array.ErrShape)
	}

	if rows == 0 {
		if c, ok := data.(*chunked.Array); ok {
			return c.Blocks(), nil
		}
		rows = max(data.Shape()[0], 1)
	}

	c, err := chunked.Split(data, rows)
	if err != nil {
		return nil, err
	}
	return c.Blocks(), nil
}

// blockRef is a stored block that is read, verified and decoded on materialization.
type blockRef struct {
	store *Store
	codec codec.Codec
	key   blockKey
	dt    dtype.DType
	shape []int
}

func (b *blockRef) DType() dtype.DType {
	return b.dt
}

func (b *blockRef) Shape() []int {
	return b.shape
}

func (b *blockRef) Index(ranges ...array.Range) (array.Array, error) {
	return array.View(b, ranges...)
}

func (b *blockRef) Materialize() (*array.Dense, error) {
	if cache := b.store.cache; cache != nil {
		if d, ok := cache.Get(b.key); ok {
			return d, nil
		}
	}

	stored, err := b.store.storage.GetBlock(b.key.name, b.key.index)
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, fmt.Errorf("%w: block %d of %q", ErrNotFound, b.key.index, b.key.name)
	} else if err != nil {
		return nil, fmt.Errorf("get block %d of %q: %w", b.key.index, b.key.name, err)
	}

	if sum := xxh3.Hash(stored.Data); sum != stored.Checksum {
		return nil, fmt.Errorf("%w: block %d of %q has %x, expected %x", ErrChecksum, b.key.index, b.key.name, sum, stored.Checksum)
	}

	d, err := b.codec.Derive().Decode(stored.Data)
	if err != nil {
		return nil, fmt.Errorf("decode block %d of %q: %w", b.key.index, b.key.name, err)
	}
	if d.DType() != b.dt || !slices.Equal(d.Shape(), b.shape) {
		return nil, fmt.Errorf(
			"%w: block %d of %q is %s%v, expected %s%v",
			array.ErrShape, b.key.index, b.key.name, d.DType(), d.Shape(), b.dt, b.shape,
		)
	}

	if cache := b.store.cache; cache != nil {
		cache.Add(b.key, d)
	}

	return d, nil
}

func (b *blockRef) String() string {
	return fmt.Sprintf("Block(%q[%d], %s%v)", b.key.name, b.key.index, b.dt, b.shape)
}
