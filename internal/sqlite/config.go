package sqlite

import (
	"strings"
)

type Config struct {
	file    string
	workers int
	durable bool
}

type ConfigFunc = func(c *Config)

func (c *Config) File(file string) {
	file = strings.TrimSpace(file)
	if file == "" {
		panic("file can't be blank")
	}
	if strings.Contains(file, "?") {
		panic("file can't contain ?")
	}
	c.file = file
}

func (c *Config) Workers(workers int) {
	if workers < 1 {
		panic("workers can't be < 1")
	}
	c.workers = workers
}

// Durable makes every commit wait for the data to reach the disk.
func (c *Config) Durable(durable bool) {
	c.durable = durable
}
