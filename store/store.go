package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"todotui/model"
	"todotui/todotxt"
)

const (
	defaultFileName    = "todo.txt"
	maxRotatingBackups = 10
)

// EnvTodoFile overrides the backing file location when set.
const EnvTodoFile = "TODO_FILE"

// ResolvePath picks the backing todo file. Resolution order: the
// explicit flag value, the TODO_FILE environment variable, an existing
// ./todo.txt, then ~/todo.txt (created on first save). Only when none
// of these can be determined does startup fail.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(EnvTodoFile); env != "" {
		return env, nil
	}
	if _, err := os.Stat(defaultFileName); err == nil {
		return defaultFileName, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("no todo file found: pass --file, set %s, or create ./%s: %w",
			EnvTodoFile, defaultFileName, err)
	}
	return filepath.Join(home, defaultFileName), nil
}

// LoadTasks reads and parses the backing file.
// If the file does not exist, it returns an empty task list.
func LoadTasks(path string) ([]model.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return todotxt.ParseFile(string(data)), nil
}

// SaveTasks writes safely using temporary file + atomic rename.
// It also stores a latest backup (.bak) and a rotating timestamped backup set.
func SaveTasks(path string, tasks []model.Task) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	if err := backup(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.WriteString(todotxt.SerializeFile(tasks)); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	if err := os.WriteFile(path+".bak", data, 0o644); err != nil {
		return err
	}

	timestamp := time.Now().UTC().Format("20060102-150405.000000000")
	rotatingPath := fmt.Sprintf("%s.bak.%s", path, timestamp)
	if err := os.WriteFile(rotatingPath, data, 0o644); err != nil {
		return err
	}

	return pruneRotatingBackups(path)
}

func pruneRotatingBackups(path string) error {
	files, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return err
	}
	if len(files) <= maxRotatingBackups {
		return nil
	}

	sort.Strings(files)
	toDelete := files[:len(files)-maxRotatingBackups]
	for _, old := range toDelete {
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
