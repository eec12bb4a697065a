package emitter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const fileMode os.FileMode = 0o644

// Plan lists files in deterministic order.
func Plan(files map[string][]byte) []PlannedFile {
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: fileMode})
	}
	return planned
}

// WriteFiles writes files under outDir in plan order, each through a temp
// file and rename. Files written before a failure are left in place.
func WriteFiles(outDir string, files map[string][]byte) ([]PlannedFile, error) {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}
	planned := Plan(files)
	for _, pf := range planned {
		path := filepath.Join(abs, filepath.FromSlash(pf.RelPath))
		if err := WriteFileAtomic(path, files[pf.RelPath], fileMode); err != nil {
			return nil, fmt.Errorf("write file %s: %w", path, err)
		}
	}
	return planned, nil
}

// WriteFileAtomic writes content to a temp file next to fullPath and
// renames it into place, creating parent directories as needed.
func WriteFileAtomic(fullPath string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure target directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-okapi-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
		}
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Chmod(mode); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	success = true
	return nil
}
