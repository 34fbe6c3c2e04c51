package config

import "testing"

func TestGetters(t *testing.T) {
	t.Setenv("APS_STRING", " value ")
	t.Setenv("APS_INT", "7")
	t.Setenv("APS_BAD_INT", "seven")
	t.Setenv("APS_BOOL", "true")
	t.Setenv("APS_LIST", "a, b,,c")

	if got := Get("APS_STRING", "x"); got != "value" {
		t.Fatalf("Get = %q, want value", got)
	}
	if got := Get("APS_MISSING", "x"); got != "x" {
		t.Fatalf("Get fallback = %q, want x", got)
	}
	if got := GetInt("APS_INT", 1); got != 7 {
		t.Fatalf("GetInt = %d, want 7", got)
	}
	if got := GetInt("APS_BAD_INT", 3); got != 3 {
		t.Fatalf("GetInt bad = %d, want 3", got)
	}
	if got := GetBool("APS_BOOL", false); !got {
		t.Fatalf("GetBool = false, want true")
	}
	if got := GetList("APS_LIST", nil); len(got) != 3 || got[2] != "c" {
		t.Fatalf("GetList = %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("REPAIR_WORKERS", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("REPAIR_ON_SEED", "")

	cfg := Load()
	if cfg.DBDriver != "sqlite" || cfg.RepairWorkers != 4 || cfg.MatsimVersion != 12 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DSN() != "data/app.db" {
		t.Fatalf("DSN = %q, want data/app.db", cfg.DSN())
	}
	if cfg.RepairOnSeed {
		t.Fatalf("RepairOnSeed defaults to true")
	}
}

func TestLoadRepairOnSeed(t *testing.T) {
	t.Setenv("REPAIR_ON_SEED", "1")
	if cfg := Load(); !cfg.RepairOnSeed {
		t.Fatalf("RepairOnSeed = false with REPAIR_ON_SEED=1")
	}

	t.Setenv("REPAIR_ON_SEED", "maybe")
	if cfg := Load(); cfg.RepairOnSeed {
		t.Fatalf("RepairOnSeed = true for an invalid value")
	}
}
