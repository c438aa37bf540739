// Package engineconfig holds the engine-wide tunables for the storage and
// execution layers: page size, buffer pool capacity, the LRU-K replacer's
// K, and the extendible hash table's depth limits and bucket capacity.
//
// What: a typed configuration struct with a Default() constructor, loadable
// from a YAML file.
// How: gopkg.in/yaml.v3 unmarshals into Config; zero-valued fields are
// filled in by Default() before unmarshalling so a partial YAML file only
// overrides what it mentions.
// Why: every tunable the buffer pool, hash index, and transaction manager
// need lives in one place instead of scattered package-level constants.
package engineconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config collects the tunables consumed by the storage and execution
// packages. All fields have sane defaults via Default().
type Config struct {
	// PageSize is the fixed size in bytes of every page. BusTub-style
	// engines default to 4096.
	PageSize int `yaml:"page_size"`

	// BufferPoolFrames is the number of frames in the buffer pool's frame
	// array (i.e. how many pages can be resident at once).
	BufferPoolFrames int `yaml:"buffer_pool_frames"`

	// ReplacerK is the K in LRU-K: the number of most-recent accesses
	// tracked per frame. Must be >= 2.
	ReplacerK int `yaml:"replacer_k"`

	// HashHeaderMaxDepth bounds the extendible hash table's header page:
	// 2^HashHeaderMaxDepth directory slots.
	HashHeaderMaxDepth uint32 `yaml:"hash_header_max_depth"`

	// HashDirectoryMaxDepth bounds a directory page's global depth.
	HashDirectoryMaxDepth uint32 `yaml:"hash_directory_max_depth"`

	// HashBucketMaxSize bounds the number of entries in a bucket page.
	HashBucketMaxSize uint32 `yaml:"hash_bucket_max_size"`
}

// Default returns a Config populated with the engine's reference tunables.
func Default() Config {
	return Config{
		PageSize:              4096,
		BufferPoolFrames:      64,
		ReplacerK:             2,
		HashHeaderMaxDepth:    8,
		HashDirectoryMaxDepth: 8,
		HashBucketMaxSize:     32,
	}
}

// Load reads a YAML config file at path, overlaying it on top of Default().
// A missing file is not an error; Default() is returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the tunables for the constraints the storage and index
// packages assume hold.
func (c Config) Validate() error {
	if c.PageSize <= 0 || c.PageSize&(c.PageSize-1) != 0 {
		return fmt.Errorf("page_size must be a positive power of two, got %d", c.PageSize)
	}
	if c.BufferPoolFrames <= 0 {
		return fmt.Errorf("buffer_pool_frames must be positive, got %d", c.BufferPoolFrames)
	}
	if c.ReplacerK < 2 {
		return fmt.Errorf("replacer_k must be >= 2, got %d", c.ReplacerK)
	}
	if c.HashDirectoryMaxDepth > c.HashHeaderMaxDepth {
		return fmt.Errorf("hash_directory_max_depth (%d) must be <= hash_header_max_depth (%d)", c.HashDirectoryMaxDepth, c.HashHeaderMaxDepth)
	}
	if c.HashBucketMaxSize == 0 {
		return fmt.Errorf("hash_bucket_max_size must be positive")
	}
	return nil
}
