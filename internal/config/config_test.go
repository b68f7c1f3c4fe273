package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestBindOptionsDefaults(t *testing.T) {
	c := New()
	cmd := &cobra.Command{Use: "test"}
	c.BindOptions(cmd, []Option{
		{Name: "resolver", Usage: "resolver name", Default: "lak"},
		{Name: "rangekm", Usage: "max range", Default: 460.0},
		{Name: "presmooth", Usage: "enable smoothing", Default: false},
	})

	if got := c.GetString("resolver"); got != "lak" {
		t.Errorf("GetString(resolver) = %q, want %q", got, "lak")
	}
	if got := c.GetFloat64("rangekm"); got != 460.0 {
		t.Errorf("GetFloat64(rangekm) = %v, want 460", got)
	}
	if got := c.GetBool("presmooth"); got != false {
		t.Errorf("GetBool(presmooth) = %v, want false", got)
	}
}

func TestBindOptionsFlagOverridesDefault(t *testing.T) {
	c := New()
	cmd := &cobra.Command{Use: "test"}
	c.BindOptions(cmd, []Option{{Name: "resolver", Default: "lak"}})

	if err := cmd.PersistentFlags().Set("resolver", "robert"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := c.GetString("resolver"); got != "robert" {
		t.Errorf("GetString(resolver) after flag override = %q, want %q", got, "robert")
	}
}

func TestReadFileLayersUnderFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion.toml")
	if err := os.WriteFile(path, []byte("resolver = \"robert\"\nrangekm = 250.0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := New()
	cmd := &cobra.Command{Use: "test"}
	c.BindOptions(cmd, []Option{
		{Name: "resolver", Default: "lak"},
		{Name: "rangekm", Default: 460.0},
	})

	if err := c.ReadFile(path); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := c.GetString("resolver"); got != "robert" {
		t.Errorf("GetString(resolver) after ReadFile = %q, want %q (file value)", got, "robert")
	}
	if got := c.GetFloat64("rangekm"); got != 250.0 {
		t.Errorf("GetFloat64(rangekm) after ReadFile = %v, want 250", got)
	}
}

func TestReadFileEmptyPathIsNoOp(t *testing.T) {
	c := New()
	if err := c.ReadFile(""); err != nil {
		t.Errorf("ReadFile(\"\") = %v, want nil", err)
	}
}
