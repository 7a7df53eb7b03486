package inject

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lorehq/lore/internal/paths"
)

func TestDeriveProjectFromRegistry(t *testing.T) {
	root := &paths.Root{Dir: t.TempDir()}
	projRoot := t.TempDir()
	regDir := root.RegistryDir()
	if err := os.MkdirAll(regDir, 0755); err != nil {
		t.Fatal(err)
	}
	entry := "name = \"lore\"\nroot = \"" + projRoot + "\"\n"
	if err := os.WriteFile(filepath.Join(regDir, "lore.toml"), []byte(entry), 0644); err != nil {
		t.Fatal(err)
	}

	if got := DeriveProject(root, projRoot); got != "lore" {
		t.Errorf("DeriveProject = %q, want registry name", got)
	}
	sub := filepath.Join(projRoot, "internal", "engine")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if got := DeriveProject(root, sub); got != "lore" {
		t.Errorf("DeriveProject from subdirectory = %q, want lore", got)
	}
}

func TestDeriveProjectFallsBackToBasename(t *testing.T) {
	root := &paths.Root{Dir: t.TempDir()}
	dir := filepath.Join(t.TempDir(), "MyService")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if got := DeriveProject(root, dir); got != "myservice" {
		t.Errorf("DeriveProject = %q, want lowercased basename", got)
	}
}

func TestDeriveProjectEmpty(t *testing.T) {
	root := &paths.Root{Dir: t.TempDir()}
	if got := DeriveProject(root, ""); got != "" {
		t.Errorf("DeriveProject(\"\") = %q, want empty", got)
	}
}
