package store

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"todotui/model"
)

func sampleTasks(label string) []model.Task {
	return []model.Task{
		{
			ID:           1,
			Priority:     "A",
			CreationDate: "2026-01-02",
			Text:         "write " + label + " +todotui @desk",
			Projects:     []string{"todotui"},
			Contexts:     []string{"desk"},
		},
		{
			ID:             2,
			Completed:      true,
			CompletionDate: "2026-01-05",
			Text:           "ship " + label,
		},
	}
}

func TestLoadMissingFileReturnsEmptyList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todo.txt")

	tasks, err := LoadTasks(path)
	if err != nil {
		t.Fatalf("load missing file failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty list for missing file, got %+v", tasks)
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todo.txt")
	want := sampleTasks("a")

	if err := SaveTasks(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := LoadTasks(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !reflect.DeepEqual(want, got) {
		t.Fatalf("save/load mismatch\nwant=%+v\ngot=%+v", want, got)
	}
}

func TestSaveCreatesBackupAndPersistsLatestTasks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todo.txt")
	initial := sampleTasks("old")
	updated := sampleTasks("new")

	if err := SaveTasks(path, initial); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}
	if err := SaveTasks(path, updated); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	gotLatest, err := LoadTasks(path)
	if err != nil {
		t.Fatalf("load latest failed: %v", err)
	}
	if !reflect.DeepEqual(updated, gotLatest) {
		t.Fatalf("latest tasks mismatch\nwant=%+v\ngot=%+v", updated, gotLatest)
	}

	gotBackup, err := LoadTasks(path + ".bak")
	if err != nil {
		t.Fatalf("load backup failed: %v", err)
	}
	if !reflect.DeepEqual(initial, gotBackup) {
		t.Fatalf("backup mismatch\nwant=%+v\ngot=%+v", initial, gotBackup)
	}
}

func TestRotatingBackupsArePruned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todo.txt")

	if err := SaveTasks(path, sampleTasks("seed")); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}

	for i := 0; i < 15; i++ {
		if err := SaveTasks(path, sampleTasks(fmt.Sprintf("%d", i))); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
		time.Sleep(1 * time.Millisecond)
	}

	files, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		t.Fatalf("glob rotating backups failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("expected rotating backups, found none")
	}
	if len(files) > maxRotatingBackups {
		t.Fatalf("expected at most %d rotating backups, got %d", maxRotatingBackups, len(files))
	}
}

func TestResolvePathExplicitBeatsEnv(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "mine.txt")
	t.Setenv(EnvTodoFile, filepath.Join(dir, "env.txt"))

	got, err := ResolvePath(explicit)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != explicit {
		t.Fatalf("want explicit path %q, got %q", explicit, got)
	}

	got, err = ResolvePath("")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if want := filepath.Join(dir, "env.txt"); got != want {
		t.Fatalf("want env path %q, got %q", want, got)
	}
}

func TestResolvePathCwdThenHomeFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvTodoFile, "")
	t.Chdir(dir)

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("home dir: %v", err)
	}

	got, err := ResolvePath("")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if want := filepath.Join(home, "todo.txt"); got != want {
		t.Fatalf("want home fallback %q, got %q", want, got)
	}

	if err := os.WriteFile(filepath.Join(dir, "todo.txt"), []byte("\n"), 0o644); err != nil {
		t.Fatalf("write cwd file failed: %v", err)
	}

	got, err = ResolvePath("")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "todo.txt" {
		t.Fatalf("want cwd todo.txt, got %q", got)
	}
}
