package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/teenjuna/cfcode/blockstore"
)

const raw = `
name: temp
dims: [time, station]
dtype: int16
shape: [3, 2]
data:
  - [1, 2]
  - [-1, 4]
  - [5, 6]
attrs:
  _FillValue: -1
  scale_factor: 0.5
  units: K
`

func TestDecode(t *testing.T) {
	file := writeFile(t, "raw.yaml", raw)

	for _, args := range [][]string{
		{"decode", file},
		{"decode", file, "--chunk", "2"},
		{"decode", file, "--chunk", "1", "--verbose"},
	} {
		out, err := execute(t, args...)
		require.NoError(t, err)

		doc := parse(t, out)
		require.Equal(t, "temp", doc.Name)
		require.Equal(t, []string{"time", "station"}, doc.Dims)
		require.Equal(t, "float32", doc.DType)
		require.Equal(t, []int{3, 2}, doc.Shape)
		require.Equal(t, []any{0.5, 1.0, nil, 2.0, 2.5, 3.0}, doc.Data)
		require.Equal(t, map[string]any{"units": "K"}, doc.Attrs)
		require.Equal(t, map[string]any{"_FillValue": -1.0, "scale_factor": 0.5}, doc.Encoding)
	}
}

func TestEncodeDecoded(t *testing.T) {
	out, err := execute(t, "decode", writeFile(t, "raw.yaml", raw))
	require.NoError(t, err)

	// JSON is valid YAML, so decoded output can be encoded back.
	out, err = execute(t, "encode", writeFile(t, "decoded.json", out))
	require.NoError(t, err)

	doc := parse(t, out)
	require.Equal(t, "float32", doc.DType)
	require.Equal(t, []any{1.0, 2.0, -1.0, 4.0, 5.0, 6.0}, doc.Data)
	require.Equal(t, map[string]any{"units": "K", "_FillValue": -1.0, "scale_factor": 0.5}, doc.Attrs)
	require.Empty(t, doc.Encoding)
}

func TestCoders(t *testing.T) {
	file := writeFile(t, "raw.yaml", raw)

	out, err := execute(t, "decode", file, "--coders", "mask")
	require.NoError(t, err)

	doc := parse(t, out)
	require.Equal(t, []any{1.0, 2.0, nil, 4.0, 5.0, 6.0}, doc.Data)
	require.Equal(t, map[string]any{"units": "K", "scale_factor": 0.5}, doc.Attrs)

	_, err = execute(t, "decode", file, "--coders", "zstd")
	require.ErrorContains(t, err, `unknown coder "zstd"`)
}

func TestUnsigned(t *testing.T) {
	file := writeFile(t, "unsigned.yaml", `
name: flags
dims: [x]
dtype: int8
data: [-1, 0, 127]
attrs:
  _Unsigned: true
`)

	out, err := execute(t, "decode", file)
	require.NoError(t, err)

	doc := parse(t, out)
	require.Equal(t, "uint8", doc.DType)
	require.Equal(t, []any{255.0, 0.0, 127.0}, doc.Data)
	require.Equal(t, map[string]any{"_Unsigned": "true"}, doc.Encoding)
}

func TestSpecialFloats(t *testing.T) {
	file := writeFile(t, "special.yaml", `
name: x
dtype: float64
data: [1, null, "+Inf", "-Inf"]
`)

	out, err := execute(t, "decode", file)
	require.NoError(t, err)
	require.Equal(t, []any{1.0, nil, "+Inf", "-Inf"}, parse(t, out).Data)
}

func TestInvalidInput(t *testing.T) {
	_, err := execute(t, "decode", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, "decode", writeFile(t, "bad.yaml", "name: x\ndtype: int8\nvalues: [1]\n"))
	require.ErrorContains(t, err, "field values not found")

	_, err = execute(t, "decode", writeFile(t, "bad.yaml", "name: x\ndata: [1]\n"))
	require.ErrorContains(t, err, "dtype is required")

	_, err = execute(t, "decode", writeFile(t, "bad.yaml", "name: x\ndtype: int8\nshape: [2]\ndata: [1]\n"))
	require.Error(t, err)

	_, err = execute(t, "decode", writeFile(t, "raw.yaml", raw), "--chunk", "-1")
	require.ErrorContains(t, err, "chunk can't be < 0")
}

func TestStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")
	file := writeFile(t, "raw.yaml", raw)

	_, err := execute(t, "store", "put", file, "--db", db, "--chunk", "2", "--codec", "msgp")
	require.NoError(t, err)

	out, err := execute(t, "store", "ls", "--db", db)
	require.NoError(t, err)
	require.Equal(t, "temp\n", out)

	out, err = execute(t, "store", "get", "temp", "--db", db)
	require.NoError(t, err)
	doc := parse(t, out)
	require.Equal(t, "int16", doc.DType)
	require.Equal(t, []any{1.0, 2.0, -1.0, 4.0, 5.0, 6.0}, doc.Data)
	require.Equal(t, map[string]any{"units": "K", "_FillValue": -1.0, "scale_factor": 0.5}, doc.Attrs)

	out, err = execute(t, "store", "get", "temp", "--db", db, "--decode")
	require.NoError(t, err)
	require.Equal(t, []any{0.5, 1.0, nil, 2.0, 2.5, 3.0}, parse(t, out).Data)

	out, err = execute(t, "store", "stats", "--db", db)
	require.NoError(t, err)
	var stats blockstore.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Equal(t, 1, stats.Variables)
	require.Equal(t, 2, stats.Blocks)

	_, err = execute(t, "store", "rm", "temp", "--db", db)
	require.NoError(t, err)

	_, err = execute(t, "store", "rm", "temp", "--db", db)
	require.ErrorIs(t, err, blockstore.ErrNotFound)

	_, err = execute(t, "store", "get", "temp", "--db", db)
	require.ErrorIs(t, err, blockstore.ErrNotFound)

	out, err = execute(t, "store", "ls", "--db", db)
	require.NoError(t, err)
	require.Empty(t, strings.TrimSpace(out))

	_, err = execute(t, "store", "put", file, "--db", db, "--codec", "xml")
	require.ErrorContains(t, err, `unknown codec "xml"`)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func parse(t *testing.T, out string) document {
	t.Helper()

	var doc document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	return doc
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}
