package blockstore_test

import (
	"database/sql"
	"errors"
	"math"
	"path"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/teenjuna/cfcode"
	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/blockstore"
	"github.com/teenjuna/cfcode/chunked"
	"github.com/teenjuna/cfcode/codec"
	"github.com/teenjuna/cfcode/codec/gob"
	"github.com/teenjuna/cfcode/codec/json"
	"github.com/teenjuna/cfcode/codec/msgp"
	"github.com/teenjuna/cfcode/dtype"
)

var nan = math.NaN()

func TestSaveLoad(t *testing.T) {
	for _, c := range []codec.Codec{json.New(), gob.New(), msgp.New()} {
		t.Run(c.Name(), func(t *testing.T) {
			run(t, func(t *testing.T, file string) {
				store := open(t, file, func(cfg *blockstore.Config) { cfg.Codec(c) })

				v := raw(t)
				require.NoError(t, store.Save("temp", v, 2))

				loaded, err := store.Load("temp")
				require.NoError(t, err)

				require.Equal(t, v.Dims, loaded.Dims)
				equal(t, v.Attrs, loaded.Attrs)
				equal(t, v.Encoding, loaded.Encoding)
				require.Equal(t, dtype.Int16, loaded.Data.DType())
				require.Equal(t, []int{5, 2}, loaded.Data.Shape())

				ca, ok := loaded.Data.(*chunked.Array)
				require.True(t, ok)
				require.Equal(t, []int{2, 2, 1}, ca.Chunks())

				want, err := v.Data.Materialize()
				require.NoError(t, err)
				got, err := loaded.Data.Materialize()
				require.NoError(t, err)
				require.Equal(t, want.Values(), got.Values())

				sub, err := loaded.Data.Index(array.Range{Start: 1, Stop: 4}, array.Range{Start: 1, Stop: 2})
				require.NoError(t, err)
				d, err := sub.Materialize()
				require.NoError(t, err)
				require.Equal(t, []int16{-1, 6, 8}, d.Values())
			})
		})
	}
}

func TestDecodeLoaded(t *testing.T) {
	store := open(t, ":memory:")
	require.NoError(t, store.Save("temp", raw(t), 3))

	loaded, err := store.Load("temp")
	require.NoError(t, err)

	decoded, err := cfcode.NewChain().Decode(loaded, "temp")
	require.NoError(t, err)

	c, ok := decoded.Data.(*chunked.Array)
	require.True(t, ok)
	require.Equal(t, []int{3, 2}, c.Chunks())

	d, err := decoded.Data.Materialize()
	require.NoError(t, err)
	equal(t, []float32{0.5, 1, 1.5, float32(nan), 2.5, 3, 3.5, 4, 4.5, 5}, d.Values())

	// Decoded variables can be saved as they are, keeping their blocks.
	require.NoError(t, store.Save("decoded", decoded, 0))
	again, err := store.Load("decoded")
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, again.Data.(*chunked.Array).Chunks())
	require.Equal(t, dtype.Float32, again.Data.DType())
}

func TestSaveOverLoaded(t *testing.T) {
	run(t, func(t *testing.T, file string) {
		store := open(t, file, func(c *blockstore.Config) { c.CacheSize(0) })
		require.NoError(t, store.Save("temp", raw(t), 3))

		loaded, err := store.Load("temp")
		require.NoError(t, err)
		decoded, err := cfcode.NewChain().Decode(loaded, "temp")
		require.NoError(t, err)

		// The decoded data is read from the variable it replaces.
		require.NoError(t, store.Save("temp", decoded, 0))

		again, err := store.Load("temp")
		require.NoError(t, err)
		require.Equal(t, dtype.Float32, again.Data.DType())
		d, err := again.Data.Materialize()
		require.NoError(t, err)
		equal(t, []float32{0.5, 1, 1.5, float32(nan), 2.5, 3, 3.5, 4, 4.5, 5}, d.Values())

		// A failed save keeps the old variable.
		failing := array.Map(array.Of[int8](1), func(*array.Dense) (*array.Dense, error) {
			return nil, errors.New("boom")
		}, dtype.Int8)
		require.Error(t, store.Save("temp", cfcode.NewVariable(nil, failing, nil, nil), 0))

		again, err = store.Load("temp")
		require.NoError(t, err)
		require.Equal(t, []int{5, 2}, again.Data.Shape())

		names, err := store.Names()
		require.NoError(t, err)
		require.Equal(t, []string{"temp"}, names)
		stats, err := store.Stats()
		require.NoError(t, err)
		require.Equal(t, 1, stats.Variables)
		require.Equal(t, 2, stats.Blocks)
	})
}

func TestSaveWholeArray(t *testing.T) {
	store := open(t, ":memory:")
	require.NoError(t, store.Save("v", cfcode.NewVariable([]string{"x"}, array.Of(1.0, 2.0, 3.0), nil, nil), 0))

	loaded, err := store.Load("v")
	require.NoError(t, err)
	require.Equal(t, []int{3}, loaded.Data.(*chunked.Array).Chunks())

	empty := cfcode.NewVariable([]string{"x"}, array.Of[uint8](), nil, nil)
	require.NoError(t, store.Save("empty", empty, 0))
	loaded, err = store.Load("empty")
	require.NoError(t, err)
	require.Equal(t, []int{0}, loaded.Data.Shape())
}

func TestSaveReplaces(t *testing.T) {
	store := open(t, ":memory:")

	require.NoError(t, store.Save("v", cfcode.NewVariable(nil, array.Of[int8](1, 2), nil, nil), 1))
	first, err := store.Load("v")
	require.NoError(t, err)
	_, err = first.Data.Materialize()
	require.NoError(t, err)

	require.NoError(t, store.Save("v", cfcode.NewVariable(nil, array.Of[int8](3, 4, 5), nil, nil), 1))
	second, err := store.Load("v")
	require.NoError(t, err)

	d, err := second.Data.Materialize()
	require.NoError(t, err)
	require.Equal(t, []int8{3, 4, 5}, d.Values())

	names, err := store.Names()
	require.NoError(t, err)
	require.Equal(t, []string{"v"}, names)
}

func TestSaveFailure(t *testing.T) {
	store := open(t, ":memory:")

	boom := errors.New("boom")
	failing := array.Map(array.Of[int8](1, 2, 3), func(d *array.Dense) (*array.Dense, error) {
		if d.At(0) == int8(3) {
			return nil, boom
		}
		return d, nil
	}, dtype.Int8)

	err := store.Save("v", cfcode.NewVariable(nil, failing, nil, nil), 1)
	require.ErrorIs(t, err, boom)

	_, err = store.Load("v")
	require.ErrorIs(t, err, blockstore.ErrNotFound)

	stats, err := store.Stats()
	require.NoError(t, err)
	require.Equal(t, 0, stats.Blocks)
}

func TestChecksum(t *testing.T) {
	file := path.Join(t.TempDir(), "file")
	store := open(t, file, func(c *blockstore.Config) { c.CacheSize(0) })

	require.NoError(t, store.Save("temp", raw(t), 2))

	db, err := sql.Open("sqlite3", file)
	require.NoError(t, err)
	_, err = db.Exec("update block set checksum = checksum + 1 where idx = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	loaded, err := store.Load("temp")
	require.NoError(t, err)

	_, err = loaded.Data.Materialize()
	require.ErrorIs(t, err, blockstore.ErrChecksum)

	// Untouched blocks are still readable.
	first, err := loaded.Data.Index(array.Range{Start: 0, Stop: 2})
	require.NoError(t, err)
	_, err = first.Materialize()
	require.NoError(t, err)
}

func TestDelete(t *testing.T) {
	run(t, func(t *testing.T, file string) {
		store := open(t, file)
		require.NoError(t, store.Save("a", raw(t), 2))
		require.NoError(t, store.Save("b", raw(t), 5))

		loaded, err := store.Load("a")
		require.NoError(t, err)
		_, err = loaded.Data.Materialize()
		require.NoError(t, err)

		stats, err := store.Stats()
		require.NoError(t, err)
		require.Equal(t, 2, stats.Variables)
		require.Equal(t, 4, stats.Blocks)
		require.Equal(t, 3, stats.Cached)

		require.NoError(t, store.Delete("a"))
		require.ErrorIs(t, store.Delete("a"), blockstore.ErrNotFound)

		_, err = store.Load("a")
		require.ErrorIs(t, err, blockstore.ErrNotFound)

		names, err := store.Names()
		require.NoError(t, err)
		require.Equal(t, []string{"b"}, names)

		stats, err = store.Stats()
		require.NoError(t, err)
		require.Equal(t, blockstore.Stats{Variables: 1, Blocks: 1, Bytes: stats.Bytes}, *stats)
	})
}

func TestConfigValidation(t *testing.T) {
	cfg := &blockstore.Config{}

	require.PanicsWithValue(t, "file can't be blank", func() { cfg.File("") })
	require.PanicsWithValue(t, "codec can't be nil", func() { cfg.Codec(nil) })
	require.PanicsWithValue(t, "cache size can't be < 0", func() { cfg.CacheSize(-1) })
	require.PanicsWithValue(t, "workers can't be < 1", func() { cfg.Workers(0) })
}

func raw(t *testing.T) *cfcode.Variable {
	t.Helper()

	data, err := array.New([]int16{1, 2, 3, -1, 5, 6, 7, 8, 9, 10}, 5, 2)
	require.NoError(t, err)

	return cfcode.NewVariable(
		[]string{"time", "station"},
		data,
		cfcode.Attrs{
			cfcode.FillValue:   int16(-1),
			cfcode.ScaleFactor: 0.5,
			"units":            "K",
			"valid_range":      []float32{0, float32(nan)},
			"flags":            []any{"a", "b"},
		},
		cfcode.Attrs{
			cfcode.StorageDType: "int16",
		},
	)
}

func equal(t *testing.T, want, got any) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func open(t *testing.T, file string, configFuncs ...blockstore.ConfigFunc) *blockstore.Store {
	t.Helper()

	store, err := blockstore.Open(append([]blockstore.ConfigFunc{
		func(c *blockstore.Config) { c.File(file) },
	}, configFuncs...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	return store
}

func run(t *testing.T, fn func(t *testing.T, file string)) {
	t.Helper()
	t.Run("In file", func(t *testing.T) {
		t.Helper()
		fn(t, path.Join(t.TempDir(), "file"))
	})
	t.Run("In memory", func(t *testing.T) {
		t.Helper()
		fn(t, ":memory:")
	})
}
