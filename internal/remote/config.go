package remote

import "fmt"

// Config holds the connection settings for the authoritative store.
type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("remote config is required")
	}
	if c.DB < 0 || c.DB > 15 {
		return fmt.Errorf("db must be between 0 and 15, got %d", c.DB)
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Address:  "localhost:6379",
		PoolSize: 10,
	}
}
