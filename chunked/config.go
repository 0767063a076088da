package chunked

// Config configures a chunked [Array].
type Config struct {
	workers int
}

type ConfigFunc = func(c *Config)

// Workers sets the maximum number of blocks materialized at the same time.
func (c *Config) Workers(workers int) {
	if workers < 1 {
		panic("workers can't be < 1")
	}
	c.workers = workers
}
