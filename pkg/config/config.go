package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds process-wide settings for the module: where index pages
// live and how much in-memory arena a build is allowed to consume before
// falling back to the disk-backed page store.
type Config struct {
	Process ProcessConfig  `yaml:"process"`
	IVFFlat IVFFlatOptions `yaml:"ivfflat"`
	HNSW    HNSWOptions    `yaml:"hnsw"`
	Session SessionOptions `yaml:"session"`
}

// ProcessConfig holds the process-level knobs that apply regardless of
// which index engine is in use.
type ProcessConfig struct {
	DataDir              string `yaml:"data_dir"`               // disk page store location, used once arena is exhausted
	MaintenanceMemBudget int64  `yaml:"maintenance_mem_bytes"` // bytes available to the build-phase arena; 0 means unbounded
}

// IVFFlatOptions holds the CREATE-INDEX-time parameters for an IVFFlat
// index.
type IVFFlatOptions struct {
	Lists int `yaml:"lists"` // number of inverted lists, valid range [1, 32768]
}

// HNSWOptions holds the CREATE-INDEX-time parameters for an HNSW index
//.
type HNSWOptions struct {
	M              int `yaml:"m"`               // max connections per layer above 0, valid range [2, 100]
	EfConstruction int `yaml:"ef_construction"` // dynamic candidate list size during build, valid range [4, 1000]
}

// SessionOptions holds the per-query knobs a caller may tune without
// rebuilding the index.
type SessionOptions struct {
	Probes   int `yaml:"probes"`    // IVFFlat lists probed per query, default 1
	EfSearch int `yaml:"ef_search"` // HNSW dynamic candidate list at query time, default 40, range [1, 1000]
}

// Default returns the configuration a freshly created index starts with.
func Default() *Config {
	return &Config{
		Process: ProcessConfig{
			DataDir:              "./data",
			MaintenanceMemBudget: 64 * 1024 * 1024,
		},
		IVFFlat: IVFFlatOptions{
			Lists: 100,
		},
		HNSW: HNSWOptions{
			M:              16,
			EfConstruction: 64,
		},
		Session: SessionOptions{
			Probes:   1,
			EfSearch: 40,
		},
	}
}

// LoadFromEnv overlays environment variables on top of Default, mirroring
// the ANNIDX_* naming convention used throughout this module.
func LoadFromEnv() *Config {
	cfg := Default()

	if dir := os.Getenv("ANNIDX_DATA_DIR"); dir != "" {
		cfg.Process.DataDir = dir
	}
	if mem := os.Getenv("ANNIDX_MAINTENANCE_MEM_BYTES"); mem != "" {
		if v, err := strconv.ParseInt(mem, 10, 64); err == nil {
			cfg.Process.MaintenanceMemBudget = v
		}
	}
	if lists := os.Getenv("ANNIDX_IVFFLAT_LISTS"); lists != "" {
		if v, err := strconv.Atoi(lists); err == nil {
			cfg.IVFFlat.Lists = v
		}
	}
	if m := os.Getenv("ANNIDX_HNSW_M"); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			cfg.HNSW.M = v
		}
	}
	if ef := os.Getenv("ANNIDX_HNSW_EF_CONSTRUCTION"); ef != "" {
		if v, err := strconv.Atoi(ef); err == nil {
			cfg.HNSW.EfConstruction = v
		}
	}
	if probes := os.Getenv("ANNIDX_PROBES"); probes != "" {
		if v, err := strconv.Atoi(probes); err == nil {
			cfg.Session.Probes = v
		}
	}
	if efSearch := os.Getenv("ANNIDX_EF_SEARCH"); efSearch != "" {
		if v, err := strconv.Atoi(efSearch); err == nil {
			cfg.Session.EfSearch = v
		}
	}

	return cfg
}

// Validate checks every field against its allowed range, returning the
// first violation found.
func (c *Config) Validate() error {
	if c.Process.DataDir == "" {
		return fmt.Errorf("data directory not specified")
	}
	if c.Process.MaintenanceMemBudget < 0 {
		return fmt.Errorf("invalid maintenance memory budget: %d (must be >= 0)", c.Process.MaintenanceMemBudget)
	}

	if err := c.IVFFlat.Validate(); err != nil {
		return err
	}
	if err := c.HNSW.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(&c.HNSW); err != nil {
		return err
	}

	return nil
}

// Validate checks that lists falls within [1, 32768].
func (o *IVFFlatOptions) Validate() error {
	if o.Lists < 1 || o.Lists > 32768 {
		return fmt.Errorf("invalid ivfflat lists: %d (must be in [1, 32768])", o.Lists)
	}
	return nil
}

// Validate checks that m falls within [2,100], ef_construction within
// [4,1000], and ef_construction >= 2*m.
func (o *HNSWOptions) Validate() error {
	if o.M < 2 || o.M > 100 {
		return fmt.Errorf("invalid hnsw m: %d (must be in [2, 100])", o.M)
	}
	if o.EfConstruction < 4 || o.EfConstruction > 1000 {
		return fmt.Errorf("invalid hnsw ef_construction: %d (must be in [4, 1000])", o.EfConstruction)
	}
	if o.EfConstruction < 2*o.M {
		return fmt.Errorf("invalid hnsw ef_construction: %d (must be >= 2*m = %d)", o.EfConstruction, 2*o.M)
	}
	return nil
}

// Validate checks that probes >= 1 and ef_search falls within [1,1000].
// The hnsw argument is not consulted.
func (o *SessionOptions) Validate(hnsw *HNSWOptions) error {
	if o.Probes < 1 {
		return fmt.Errorf("invalid probes: %d (must be >= 1)", o.Probes)
	}
	if o.EfSearch < 1 || o.EfSearch > 1000 {
		return fmt.Errorf("invalid ef_search: %d (must be in [1, 1000])", o.EfSearch)
	}
	return nil
}
