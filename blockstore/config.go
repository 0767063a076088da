package blockstore

import (
	"strings"

	"github.com/teenjuna/cfcode/codec"
)

type Config struct {
	file      string
	durable   bool
	codec     codec.Codec
	cacheSize int
	workers   int
}

type ConfigFunc = func(c *Config)

// File sets the SQLite database file. ":memory:" keeps everything in memory.
func (c *Config) File(file string) {
	file = strings.TrimSpace(file)
	if file == "" {
		panic("file can't be blank")
	}
	c.file = file
}

// Durable makes every write wait for the data to reach the disk.
func (c *Config) Durable(durable bool) {
	c.durable = durable
}

// Codec sets the codec used to encode saved blocks. Loading picks the codec a variable was
// saved with.
func (c *Config) Codec(codec codec.Codec) {
	if codec == nil {
		panic("codec can't be nil")
	}
	c.codec = codec
}

// CacheSize sets the number of decoded blocks kept in memory. Zero disables the cache.
func (c *Config) CacheSize(size int) {
	if size < 0 {
		panic("cache size can't be < 0")
	}
	c.cacheSize = size
}

// Workers sets the number of blocks loaded at the same time when a loaded variable is
// materialized.
func (c *Config) Workers(workers int) {
	if workers < 1 {
		panic("workers can't be < 1")
	}
	c.workers = workers
}
