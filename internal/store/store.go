// Package store keeps API documents as JSON files under <basedir>/apidoc,
// one file per document named after the document.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/emitter"
	"github.com/okapi-tools/okapi/internal/pathutil"
	"github.com/okapi-tools/okapi/internal/validate"
)

// SubDir is the directory below the base dir that holds document files.
const SubDir = "apidoc"

const (
	ext      = ".json"
	fileMode = 0o644
)

// ErrorCode classifies store failures.
type ErrorCode string

const (
	NotFound ErrorCode = "NotFound"
	Invalid  ErrorCode = "Invalid"
	Corrupt  ErrorCode = "Corrupt"
	IOError  ErrorCode = "IOError"
)

// Error is returned by every Store operation.
type Error struct {
	Code  ErrorCode
	Op    string
	Path  string
	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Code)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by code, so callers can test with
// errors.Is(err, &store.Error{Code: store.NotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Store is a directory of document files.
type Store struct {
	dir    string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped files and saves.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// DefaultBaseDir returns ~/.okapi.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".okapi"), nil
}

// Open returns the store below baseDir, creating the document directory.
func Open(baseDir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:    filepath.Join(baseDir, SubDir),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, &Error{Code: IOError, Op: "open", Path: s.dir, Cause: err}
	}
	return s, nil
}

// Dir is the directory holding the document files.
func (s *Store) Dir() string { return s.dir }

// Path is the file a document called name is stored in.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, pathutil.StorageName(name)+ext)
}

// resolve is Path with a check that the file lands directly in the store
// directory.
func (s *Store) resolve(op, name string) (string, error) {
	path := s.Path(name)
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel != filepath.Base(path) || rel == ext || strings.HasPrefix(rel, "..") {
		return path, &Error{Code: Invalid, Op: op, Path: path, Cause: fmt.Errorf("document name %q does not resolve inside %s", name, s.dir)}
	}
	return path, nil
}

// Exists reports whether a document called name is stored.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Save validates d and writes it to Path(d.Name). A document with
// validation errors is not written.
func (s *Store) Save(d *apidoc.Document) (string, error) {
	path, err := s.resolve("save", d.Name)
	if err != nil {
		return "", err
	}
	if err := validate.Document(d).Err(); err != nil {
		return "", &Error{Code: Invalid, Op: "save", Path: path, Cause: err}
	}
	raw, err := apidoc.Encode(d)
	if err != nil {
		return "", &Error{Code: Invalid, Op: "save", Path: path, Cause: err}
	}
	if err := emitter.WriteFileAtomic(path, raw, fileMode); err != nil {
		return "", &Error{Code: IOError, Op: "save", Path: path, Cause: err}
	}
	s.logger.Debug("document saved", "name", d.Name, "path", path)
	return path, nil
}

// Load reads the document file at path. The file is checked against the
// document schema before it is decoded.
func Load(path string) (*apidoc.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		code := IOError
		if errors.Is(err, fs.ErrNotExist) {
			code = NotFound
		}
		return nil, &Error{Code: code, Op: "load", Path: path, Cause: err}
	}
	if err := checkSchema(raw); err != nil {
		return nil, &Error{Code: Corrupt, Op: "load", Path: path, Cause: err}
	}
	d, err := apidoc.Decode(raw)
	if err != nil {
		return nil, &Error{Code: Corrupt, Op: "load", Path: path, Cause: err}
	}
	return d, nil
}

// LoadByName loads the document stored under name.
func (s *Store) LoadByName(name string) (*apidoc.Document, error) {
	path, err := s.resolve("load", name)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Entry summarizes one stored document.
type Entry struct {
	Name      string
	Version   string
	Path      string
	Models    int
	Endpoints int
	ModTime   time.Time
}

// List returns every loadable document sorted by name. Files that fail to
// load are logged and skipped.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &Error{Code: IOError, Op: "list", Path: s.dir, Cause: err}
	}
	var out []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ext) {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		d, err := Load(path)
		if err != nil {
			s.logger.Warn("skipping unreadable document", "path", path, "error", err)
			continue
		}
		e := Entry{
			Name:      d.Name,
			Version:   d.Version,
			Path:      path,
			Models:    d.Models.Len(),
			Endpoints: len(d.EndpointRefs()),
		}
		if info, err := de.Info(); err == nil {
			e.ModTime = info.ModTime()
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// Delete removes the document stored under name.
func (s *Store) Delete(name string) error {
	path, err := s.resolve("delete", name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		code := IOError
		if errors.Is(err, fs.ErrNotExist) {
			code = NotFound
		}
		return &Error{Code: code, Op: "delete", Path: path, Cause: err}
	}
	s.logger.Debug("document deleted", "name", name, "path", path)
	return nil
}
