package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/artemlk/uniqimg/internal/config"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func scanCfg(sources ...string) *config.Config {
	return &config.Config{
		Sources:   sources,
		Recursive: true,
	}
}

func TestCollect_FiltersAndRecurses(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "sub", "b.PNG"))
	touch(t, filepath.Join(root, "sub", "notes.txt"))
	touch(t, filepath.Join(root, "sub", "deep", "c.webp"))

	got, err := Collect(scanCfg(root))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}

	wantRels := []string{"a.jpg", filepath.Join("sub", "b.PNG"), filepath.Join("sub", "deep", "c.webp")}
	for i, want := range wantRels {
		if got[i].RelPath != want {
			t.Errorf("entry %d: rel = %q, want %q", i, got[i].RelPath, want)
		}
	}
}

func TestCollect_NonRecursive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "sub", "b.jpg"))

	cfg := scanCfg(root)
	cfg.Recursive = false

	got, err := Collect(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].RelPath != "a.jpg" {
		t.Fatalf("expected only a.jpg, got %v", got)
	}
}

func TestCollect_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "keep.jpg"))
	touch(t, filepath.Join(root, "thumb_small.jpg"))

	cfg := scanCfg(root)
	cfg.ExcludePatterns = []string{"thumb_*"}

	got, err := Collect(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].RelPath != "keep.jpg" {
		t.Fatalf("expected only keep.jpg, got %v", got)
	}
}

func TestCollect_DedupAcrossOverlappingRoots(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))

	got, err := Collect(scanCfg(root, root))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry after dedup, got %d", len(got))
	}
}

func TestCollect_SameRelPathFromTwoRootsKeepsBoth(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	touch(t, filepath.Join(rootA, "main.jpg"))
	touch(t, filepath.Join(rootB, "main.jpg"))

	got, err := Collect(scanCfg(rootA, rootB))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both files kept, got %d", len(got))
	}
	if got[0].RelPath != "main.jpg" || got[1].RelPath != "main.jpg" {
		t.Fatalf("expected identical rel paths, got %q and %q", got[0].RelPath, got[1].RelPath)
	}
}

func TestCollect_FileAsSourceRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "single.jpg")
	touch(t, file)

	got, err := Collect(scanCfg(file))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].RelPath != "single.jpg" {
		t.Fatalf("expected single.jpg, got %v", got)
	}
}

func TestCollect_StableOrder(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "B.jpg"))
	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "C.jpg"))

	got, err := Collect(scanCfg(root))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rels []string
	for _, e := range got {
		rels = append(rels, e.RelPath)
	}
	want := []string{"a.jpg", "B.jpg", "C.jpg"}
	for i := range want {
		if rels[i] != want[i] {
			t.Fatalf("order mismatch: got %v, want %v", rels, want)
		}
	}
}
