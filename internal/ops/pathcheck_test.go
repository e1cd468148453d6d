package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/tabdigest/internal/errors"
)

func TestValidateNotePath_Rejected(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "Tabs.md")
	if err := os.WriteFile(existing, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		mode PathCheckMode
	}{
		{"empty", "", PathCheckRead},
		{"parent traversal", "../Tabs.md", PathCheckRead},
		{"mid-path traversal", "/tmp/../etc/Tabs.md", PathCheckWrite},
		{"wrong extension", filepath.Join(dir, "Tabs.txt"), PathCheckWrite},
		{"no extension", filepath.Join(dir, "Tabs"), PathCheckWrite},
		{"missing source", filepath.Join(dir, "Missing.md"), PathCheckRead},
		{"missing output dir", filepath.Join(dir, "nope", "Out.md"), PathCheckWrite},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNotePath(tc.path, tc.mode)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, errors.ErrInputRejected) {
				t.Errorf("expected ErrInputRejected, got: %v", err)
			}
		})
	}
}

func TestValidateNotePath_Accepted(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Tabs.MD")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateNotePath(src, PathCheckRead); err != nil {
		t.Errorf("read check failed: %v", err)
	}
	if err := ValidateNotePath(filepath.Join(dir, "New (clean).md"), PathCheckWrite); err != nil {
		t.Errorf("write check failed: %v", err)
	}
}

func TestValidateNotePath_SymlinkOutput(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.md")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.md")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := ValidateNotePath(link, PathCheckWrite); !errors.Is(err, errors.ErrInputRejected) {
		t.Errorf("expected ErrInputRejected for symlink, got: %v", err)
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"Tabs.md", "Tabs (clean).md"},
		{filepath.Join("notes", "TabDump 2026-01-05.md"), filepath.Join("notes", "TabDump 2026-01-05 (clean).md")},
		{filepath.Join("a.b", "x.y.md"), filepath.Join("a.b", "x.y (clean).md")},
	}
	for _, tc := range tests {
		if got := CleanPath(tc.src); got != tc.want {
			t.Errorf("CleanPath(%q) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestIsCleanNote(t *testing.T) {
	if !IsCleanNote("notes/Tabs (clean).md") {
		t.Error("digest not recognized")
	}
	if IsCleanNote("notes/Tabs.md") {
		t.Error("source treated as digest")
	}
}
