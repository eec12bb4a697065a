package store

import (
	"errors"

	"github.com/okapi-tools/okapi/internal/apidoc"
)

// ErrNoDocument is returned when a Session has no current document.
var ErrNoDocument = errors.New("no document open")

// Session owns the document being edited. Opening or creating a document
// discards the previous one; unsaved changes are detected by fingerprint.
type Session struct {
	store *Store
	doc   *apidoc.Document
	saved string
}

// NewSession returns an empty session backed by st.
func NewSession(st *Store) *Session {
	return &Session{store: st}
}

// NewDocument makes a fresh document current. It counts as changed until
// saved.
func (s *Session) NewDocument(name, version string) *apidoc.Document {
	s.doc = apidoc.New(name, version)
	s.saved = ""
	return s.doc
}

// Open loads the stored document name and makes it current.
func (s *Session) Open(name string) (*apidoc.Document, error) {
	d, err := s.store.LoadByName(name)
	if err != nil {
		return nil, err
	}
	return d, s.adopt(d)
}

// OpenFile loads a document file from anywhere and makes it current.
func (s *Session) OpenFile(path string) (*apidoc.Document, error) {
	d, err := Load(path)
	if err != nil {
		return nil, err
	}
	return d, s.adopt(d)
}

func (s *Session) adopt(d *apidoc.Document) error {
	fp, err := apidoc.Fingerprint(d)
	if err != nil {
		return err
	}
	s.doc, s.saved = d, fp
	return nil
}

// Current returns the current document, or nil.
func (s *Session) Current() *apidoc.Document { return s.doc }

// Changed reports whether the current document differs from what was last
// loaded or saved.
func (s *Session) Changed() bool {
	if s.doc == nil {
		return false
	}
	fp, err := apidoc.Fingerprint(s.doc)
	return err != nil || fp != s.saved
}

// Save writes the current document to the store.
func (s *Session) Save() (string, error) {
	if s.doc == nil {
		return "", ErrNoDocument
	}
	path, err := s.store.Save(s.doc)
	if err != nil {
		return "", err
	}
	fp, err := apidoc.Fingerprint(s.doc)
	if err != nil {
		return path, err
	}
	s.saved = fp
	return path, nil
}
