package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	require.Equal(t, "./data", cfg.Process.DataDir)
	require.EqualValues(t, 64*1024*1024, cfg.Process.MaintenanceMemBudget)

	require.Equal(t, 100, cfg.IVFFlat.Lists)

	require.Equal(t, 16, cfg.HNSW.M)
	require.Equal(t, 64, cfg.HNSW.EfConstruction)

	require.Equal(t, 1, cfg.Session.Probes)
	require.Equal(t, 40, cfg.Session.EfSearch)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	envVars := []string{
		"ANNIDX_DATA_DIR", "ANNIDX_MAINTENANCE_MEM_BYTES",
		"ANNIDX_IVFFLAT_LISTS", "ANNIDX_HNSW_M", "ANNIDX_HNSW_EF_CONSTRUCTION",
		"ANNIDX_PROBES", "ANNIDX_EF_SEARCH",
	}
	original := make(map[string]string)
	for _, k := range envVars {
		original[k] = os.Getenv(k)
	}
	defer func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	os.Setenv("ANNIDX_DATA_DIR", "/var/lib/annidx")
	os.Setenv("ANNIDX_MAINTENANCE_MEM_BYTES", "1048576")
	os.Setenv("ANNIDX_IVFFLAT_LISTS", "256")
	os.Setenv("ANNIDX_HNSW_M", "32")
	os.Setenv("ANNIDX_HNSW_EF_CONSTRUCTION", "128")
	os.Setenv("ANNIDX_PROBES", "4")
	os.Setenv("ANNIDX_EF_SEARCH", "100")

	cfg := LoadFromEnv()

	require.Equal(t, "/var/lib/annidx", cfg.Process.DataDir)
	require.EqualValues(t, 1048576, cfg.Process.MaintenanceMemBudget)
	require.Equal(t, 256, cfg.IVFFlat.Lists)
	require.Equal(t, 32, cfg.HNSW.M)
	require.Equal(t, 128, cfg.HNSW.EfConstruction)
	require.Equal(t, 4, cfg.Session.Probes)
	require.Equal(t, 100, cfg.Session.EfSearch)
}

func TestLoadFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	original := os.Getenv("ANNIDX_HNSW_M")
	defer func() {
		if original == "" {
			os.Unsetenv("ANNIDX_HNSW_M")
		} else {
			os.Setenv("ANNIDX_HNSW_M", original)
		}
	}()

	os.Setenv("ANNIDX_HNSW_M", "not-a-number")
	cfg := LoadFromEnv()
	require.Equal(t, Default().HNSW.M, cfg.HNSW.M)
}

func TestValidateIVFFlatLists(t *testing.T) {
	cfg := Default()
	cfg.IVFFlat.Lists = 0
	require.Error(t, cfg.Validate())
	cfg.IVFFlat.Lists = 32769
	require.Error(t, cfg.Validate())
	cfg.IVFFlat.Lists = 32768
	require.NoError(t, cfg.Validate())
}

func TestValidateHNSWParams(t *testing.T) {
	cfg := Default()
	cfg.HNSW.M = 1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.HNSW.M = 101
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.HNSW.EfConstruction = 3
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.HNSW.M = 50
	cfg.HNSW.EfConstruction = 64 // < 2*m
	require.Error(t, cfg.Validate())
}

func TestValidateSessionEfSearch(t *testing.T) {
	cfg := Default()
	cfg.Session.EfSearch = 0
	require.Error(t, cfg.Validate())
	cfg.Session.EfSearch = 1001
	require.Error(t, cfg.Validate())
	cfg.Session.EfSearch = 1
	require.NoError(t, cfg.Validate())
	cfg.Session.Probes = 0
	require.Error(t, cfg.Validate())
}

func TestLoadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annidx.yaml")
	contents := []byte(`
process:
  data_dir: /data/annidx
  maintenance_mem_bytes: 2097152
ivfflat:
  lists: 512
hnsw:
  m: 24
  ef_construction: 96
session:
  probes: 8
  ef_search: 200
`)
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "/data/annidx", cfg.Process.DataDir)
	require.EqualValues(t, 2097152, cfg.Process.MaintenanceMemBudget)
	require.Equal(t, 512, cfg.IVFFlat.Lists)
	require.Equal(t, 24, cfg.HNSW.M)
	require.Equal(t, 96, cfg.HNSW.EfConstruction)
	require.Equal(t, 8, cfg.Session.Probes)
	require.Equal(t, 200, cfg.Session.EfSearch)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileOrDefaultMissingFile(t *testing.T) {
	cfg := LoadFileOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Equal(t, Default(), cfg)
}
