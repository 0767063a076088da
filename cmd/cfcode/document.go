package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/teenjuna/cfcode"
	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/chunked"
	"github.com/teenjuna/cfcode/dtype"
)

// document is a variable as read from YAML and written as JSON. Data is given in row-major
// order, either flat or as nested lists, with null for missing values.
type document struct {
	Name     string         `yaml:"name" json:"name"`
	Dims     []string       `yaml:"dims" json:"dims"`
	DType    string         `yaml:"dtype" json:"dtype"`
	Shape    []int          `yaml:"shape" json:"shape"`
	Data     []any          `yaml:"data" json:"data"`
	Attrs    map[string]any `yaml:"attrs" json:"attrs"`
	Encoding map[string]any `yaml:"encoding" json:"encoding"`
}

func readDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.DType == "" {
		return nil, fmt.Errorf("parse %s: dtype is required", path)
	}

	return &doc, nil
}

// variable builds the variable described by the document. With chunk > 0 the data is split into
// blocks of chunk rows.
func (d *document) variable(chunk int) (*cfcode.Variable, error) {
	if chunk < 0 {
		return nil, errors.New("chunk can't be < 0")
	}

	dt, err := dtype.Parse(d.DType)
	if err != nil {
		return nil, err
	}
	values := flatten(d.Data, nil)
	shape := d.Shape
	if len(shape) == 0 {
		shape = []int{len(values)}
	}

	dense, err := array.FromValues(dt, values, shape...)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}

	var data array.Array = dense
	if chunk > 0 {
		if data, err = chunked.Split(dense, chunk); err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
	}

	return cfcode.NewVariable(d.Dims, data, attrs(d.Attrs), attrs(d.Encoding)), nil
}

func newDocument(name string, v *cfcode.Variable) (*document, error) {
	d, err := v.Data.Materialize()
	if err != nil {
		return nil, fmt.Errorf("materialize %q: %w", name, err)
	}

	return &document{
		Name:     name,
		Dims:     v.Dims,
		DType:    d.DType().String(),
		Shape:    d.Shape(),
		Data:     plain(d.Values()).([]any),
		Attrs:    plainAttrs(v.Attrs),
		Encoding: plainAttrs(v.Encoding),
	}, nil
}

func (d *document) write(w io.Writer) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// flatten appends the leaves of nested lists to out, keeping nulls. Strings such as "+Inf" are
// parsed as floats.
func flatten(values []any, out []any) []any {
	for _, v := range values {
		switch x := v.(type) {
		case []any:
			out = flatten(x, out)
			continue
		case string:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				v = f
			}
		}
		out = append(out, v)
	}
	return out
}

func attrs(m map[string]any) cfcode.Attrs {
	out := make(cfcode.Attrs, len(m))
	for k, v := range m {
		// YAML reads an unquoted true as a bool.
		if b, ok := v.(bool); ok && k == cfcode.Unsigned {
			v = strconv.FormatBool(b)
		}
		out[k] = v
	}
	return out
}

func plainAttrs(a cfcode.Attrs) map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		out[k] = plain(v)
	}
	return out
}

// plain converts v into values JSON can hold. NaN becomes null and infinities become "+Inf" and
// "-Inf".
func plain(v any) any {
	if v == nil {
		return nil
	}
	if reflect.ValueOf(v).Kind() == reflect.Slice {
		values := dtype.Flatten(v)
		out := make([]any, len(values))
		for i, e := range values {
			out[i] = plainScalar(e)
		}
		return out
	}
	return plainScalar(v)
}

func plainScalar(v any) any {
	dt, ok := dtype.Of(v)
	if !ok || !dt.IsFloat() {
		return v
	}
	f, _ := dtype.AsFloat64(v)
	switch {
	case math.IsNaN(f):
		return nil
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}
