package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.TargetYear != 2024 {
		t.Fatalf("target_year = %d, want 2024", c.TargetYear)
	}
	if c.AnomalyBandWidth != 1.0 {
		t.Fatalf("band width = %v, want 1", c.AnomalyBandWidth)
	}
	if c.DataSheetName != "Data" {
		t.Fatalf("data_sheet_name = %q", c.DataSheetName)
	}
	if len(c.RequiredColumns) != len(DefaultRequiredColumns) {
		t.Fatalf("required columns = %v", c.RequiredColumns)
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	c := Default()
	c.TargetYear = 2025
	c.AnomalyBandWidth = 1.5
	c.DataSheetName = "Production"
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "target_year: 2025") {
		t.Fatalf("yaml missing target_year: %s", b)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TargetYear != 2025 || got.AnomalyBandWidth != 1.5 || got.DataSheetName != "Production" {
		t.Fatalf("unexpected config: %+v", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := Save(Default(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv("DAIRYREPORT_TARGET_YEAR", "2023")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TargetYear != 2023 {
		t.Fatalf("target_year = %d, want env value 2023", got.TargetYear)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	c := Default()
	c.DataSheetName = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for empty data sheet name")
	}
	c = Default()
	c.AnomalyBandWidth = -1
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for negative band width")
	}
}
