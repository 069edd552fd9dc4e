package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/artemlk/uniqimg/internal/config"
	"github.com/artemlk/uniqimg/internal/model"
)

func entry(root, rel string) model.SourceImage {
	return model.SourceImage{
		SourcePath: filepath.Join(root, rel),
		Root:       root,
		RelPath:    rel,
	}
}

func existing(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func resolve(t *testing.T, out config.Output, entries ...model.SourceImage) []model.ProcessingTask {
	t.Helper()
	return NewResolver(out).Resolve(entries)
}

func assertDistinctPaths(t *testing.T, tasks []model.ProcessingTask) {
	t.Helper()
	seen := make(map[string]int)
	for i, task := range tasks {
		if j, ok := seen[task.OutputPath]; ok {
			t.Fatalf("tasks %d and %d resolved to the same path %q", j, i, task.OutputPath)
		}
		seen[task.OutputPath] = i
	}
}

func TestResolve_NoConflict(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	tasks := resolve(t, config.Output{Dir: out, ConflictPolicy: config.ConflictRename},
		entry(src, "a.jpg"), entry(src, filepath.Join("sub", "b.jpg")))

	if tasks[0].OutputPath != filepath.Join(out, "a.jpg") {
		t.Errorf("unexpected path %q", tasks[0].OutputPath)
	}
	if tasks[1].OutputPath != filepath.Join(out, "sub", "b.jpg") {
		t.Errorf("folder structure not preserved: %q", tasks[1].OutputPath)
	}
	for _, task := range tasks {
		if task.Status != model.StatusProcessed {
			t.Errorf("status = %q, want processed", task.Status)
		}
	}
}

func TestResolve_RenameSuffixesInScanOrder(t *testing.T) {
	srcA := t.TempDir()
	srcB := t.TempDir()
	srcC := t.TempDir()
	out := t.TempDir()
	existing(t, filepath.Join(out, "img.jpg"))

	tasks := resolve(t, config.Output{Dir: out, ConflictPolicy: config.ConflictRename, Flatten: true},
		entry(srcA, "img.jpg"), entry(srcB, "img.jpg"), entry(srcC, "img.jpg"))

	wantNames := []string{"img_1.jpg", "img_2.jpg", "img_3.jpg"}
	for i, want := range wantNames {
		if got := filepath.Base(tasks[i].OutputPath); got != want {
			t.Errorf("task %d: name = %q, want %q", i, got, want)
		}
		if tasks[i].Status != model.StatusProcessedRename {
			t.Errorf("task %d: status = %q, want processed-rename", i, tasks[i].Status)
		}
	}
	assertDistinctPaths(t, tasks)
}

func TestResolve_RenameSkipsSuffixOnDisk(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	existing(t, filepath.Join(out, "img.jpg"))
	existing(t, filepath.Join(out, "img_1.jpg"))

	tasks := resolve(t, config.Output{Dir: out, ConflictPolicy: config.ConflictRename},
		entry(src, "img.jpg"))

	if got := filepath.Base(tasks[0].OutputPath); got != "img_2.jpg" {
		t.Fatalf("name = %q, want img_2.jpg", got)
	}
}

func TestResolve_OverwriteKeepsPath(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	existing(t, filepath.Join(out, "img.jpg"))

	tasks := resolve(t, config.Output{Dir: out, ConflictPolicy: config.ConflictOverwrite},
		entry(src, "img.jpg"))

	if tasks[0].OutputPath != filepath.Join(out, "img.jpg") {
		t.Fatalf("path = %q, want unchanged candidate", tasks[0].OutputPath)
	}
	if tasks[0].Status != model.StatusProcessed {
		t.Fatalf("status = %q, want processed", tasks[0].Status)
	}
	if tasks[0].Note == "" {
		t.Fatal("expected a conflict note")
	}
}

func TestResolve_SkipMarksExisting(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	existing(t, filepath.Join(out, "img.jpg"))

	tasks := resolve(t, config.Output{Dir: out, ConflictPolicy: config.ConflictSkip},
		entry(src, "img.jpg"))

	if tasks[0].Status != model.StatusSkipExisting {
		t.Fatalf("status = %q, want skip-existing", tasks[0].Status)
	}
	if tasks[0].Note == "" {
		t.Fatal("expected the note to mention the pre-existing file")
	}
}

func TestResolve_InRunCollisionIsRenamedUnderEveryPolicy(t *testing.T) {
	for _, policy := range []string{config.ConflictRename, config.ConflictOverwrite, config.ConflictSkip} {
		t.Run(policy, func(t *testing.T) {
			srcA := t.TempDir()
			srcB := t.TempDir()
			out := t.TempDir()

			tasks := resolve(t, config.Output{Dir: out, ConflictPolicy: policy, Flatten: true},
				entry(srcA, "img.jpg"), entry(srcB, "img.jpg"))

			assertDistinctPaths(t, tasks)
			if tasks[1].Status != model.StatusProcessedRename {
				t.Fatalf("second task status = %q, want processed-rename", tasks[1].Status)
			}
		})
	}
}

func TestResolve_DeterministicAcrossRuns(t *testing.T) {
	srcA := t.TempDir()
	srcB := t.TempDir()
	out := t.TempDir()
	existing(t, filepath.Join(out, "img.jpg"))

	entries := []model.SourceImage{entry(srcA, "img.jpg"), entry(srcB, "img.jpg")}
	first := resolve(t, config.Output{Dir: out, ConflictPolicy: config.ConflictRename, Flatten: true}, entries...)
	second := resolve(t, config.Output{Dir: out, ConflictPolicy: config.ConflictRename, Flatten: true}, entries...)

	for i := range first {
		if first[i].OutputPath != second[i].OutputPath {
			t.Fatalf("task %d: %q != %q", i, first[i].OutputPath, second[i].OutputPath)
		}
	}
}
