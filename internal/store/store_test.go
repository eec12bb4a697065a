package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sensorDoc(t *testing.T, name string) *apidoc.Document {
	t.Helper()
	d := apidoc.New(name, "1.0")
	d.Address = "http://192.168.4.1"
	d.SetHeader("X-Device", "esp32")
	require.NoError(t, d.AddModel("Reading", apidoc.NewModel("one sample")))
	require.NoError(t, d.AddAttribute("Reading", "value", &apidoc.Attribute{Type: apidoc.TypeDecimal, Example: "21.5", Required: true}))
	require.NoError(t, d.AddEndpoint(apidoc.MethodGet, "/readings/{id}", apidoc.NewEndpoint("read one")))
	require.NoError(t, d.AddParameter(apidoc.MethodGet, "/readings/{id}", "id", &apidoc.Parameter{Type: apidoc.TypeInteger, Source: apidoc.SourcePath}))
	resp := apidoc.NewResponse("ok")
	resp.Model = "Reading"
	require.NoError(t, d.AddResponse(apidoc.MethodGet, "/readings/{id}", "200", resp))
	require.NoError(t, d.AddEndpoint(apidoc.MethodGet, "/status", apidoc.NewEndpoint("status")))
	return d
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestOpenCreatesDocumentDir(t *testing.T) {
	base := t.TempDir()
	s, err := Open(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, SubDir), s.Dir())
	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(s.Dir(), "sensor_api.json"), s.Path(" Sensor API "))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openStore(t)
	d := sensorDoc(t, "Sensor API")

	path, err := s.Save(d)
	require.NoError(t, err)
	assert.Equal(t, s.Path("Sensor API"), path)
	assert.True(t, s.Exists("Sensor API"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"name\": \"Sensor API\",\n")

	back, err := s.LoadByName("Sensor API")
	require.NoError(t, err)
	want, _ := apidoc.Fingerprint(d)
	got, _ := apidoc.Fingerprint(back)
	assert.Equal(t, want, got)
	assert.Equal(t, d.EndpointRefs(), back.EndpointRefs())
}

func TestSaveRejectsInvalidDocument(t *testing.T) {
	s := openStore(t)
	d := sensorDoc(t, "Broken")
	require.NoError(t, d.DeleteModel("Reading"))

	_, err := s.Save(d)
	require.Error(t, err)
	assert.ErrorIs(t, err, &Error{Code: Invalid})
	assert.ErrorIs(t, err, validate.ErrInvalid)
	assert.False(t, s.Exists("Broken"))
}

func TestLoadNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.LoadByName(gofakeit.LetterN(10))
	assert.ErrorIs(t, err, &Error{Code: NotFound})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadReportsSchemaViolations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "name": 5,
  "version": "1",
  "models": {"M": {"attributes": {"a": {"required": "yes"}}}},
  "endpoints": {"get": {"/x": {"response": {"200": {"headers": {"A": ["list"]}}}}}}
}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, &Error{Code: Corrupt})

	var serr *SchemaError
	require.True(t, errors.As(err, &serr))
	locs := map[string]bool{}
	for _, v := range serr.Violations {
		locs[v.Location] = true
		assert.NotEmpty(t, v.Message)
	}
	assert.True(t, locs["/name"], serr.Violations)
	assert.True(t, locs["/models/M/attributes/a"], serr.Violations)
	assert.True(t, locs["/models/M/attributes/a/required"], serr.Violations)
	assert.True(t, locs["/endpoints/get/~1x/response/200/headers/A"], serr.Violations)
}

func TestLoadSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "x",`), 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, &Error{Code: Corrupt})
}

const legacyFile = `{
  "name": "Legacy",
  "version": 0.1,
  "info": null,
  "address": "http://192.168.4.1",
  "headers": {},
  "auth": {"type": null, "params": {}},
  "models": {
    "Reading": {
      "info": "",
      "attributes": {
        "value": {"type": "decimal", "required": 1, "info": "", "example": 21.5},
        "tags": {"type": "array[string]", "required": 0, "info": ""}
      }
    }
  },
  "endpoints": {
    "get": {
      "/readings": {
        "summary": "Read all",
        "info": "",
        "params": {},
        "response": {"200": {"summary": "ok", "model": "Reading"}}
      }
    }
  }
}`

func TestLoadAcceptsLegacyShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyFile), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Legacy", d.Name)
	assert.Equal(t, "0.1", d.Version)
	m, ok := d.Model("Reading")
	require.True(t, ok)
	v, _ := m.Attributes.Get("value")
	assert.True(t, v.Required)
	assert.Equal(t, "21.5", v.Example)
}

func TestListSortsAndSkipsBrokenFiles(t *testing.T) {
	s := openStore(t)
	_, err := s.Save(sensorDoc(t, "beta"))
	require.NoError(t, err)
	_, err = s.Save(sensorDoc(t, "Alpha"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "sub.json"), 0o755))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Alpha", entries[0].Name)
	assert.Equal(t, "beta", entries[1].Name)
	assert.Equal(t, 1, entries[0].Models)
	assert.Equal(t, 2, entries[0].Endpoints)
	assert.Equal(t, "1.0", entries[0].Version)
	assert.False(t, entries[0].ModTime.IsZero())
}

func TestDelete(t *testing.T) {
	s := openStore(t)
	_, err := s.Save(sensorDoc(t, "gone"))
	require.NoError(t, err)

	require.NoError(t, s.Delete("gone"))
	assert.False(t, s.Exists("gone"))
	assert.ErrorIs(t, s.Delete("gone"), &Error{Code: NotFound})
}

func TestErrorString(t *testing.T) {
	err := &Error{Code: NotFound, Op: "load", Path: "/x.json", Cause: os.ErrNotExist}
	assert.Equal(t, "load /x.json: NotFound: file does not exist", err.Error())
	assert.NotErrorIs(t, err, &Error{Code: Corrupt})
}

func TestNamesCannotEscapeDocumentDir(t *testing.T) {
	base := t.TempDir()
	s, err := Open(base)
	require.NoError(t, err)
	outside := filepath.Join(base, "x.json")
	require.NoError(t, os.WriteFile(outside, []byte("{}"), 0o644))

	for _, name := range []string{"../x", "a/../../x", `..\x`} {
		assert.Equal(t, s.Dir(), filepath.Dir(s.Path(name)), name)
		err := s.Delete(name)
		assert.True(t, errors.Is(err, &Error{Code: NotFound}), name)
	}
	_, err = os.Stat(outside)
	assert.NoError(t, err, "file outside the store must survive")

	path, err := s.Save(sensorDoc(t, "../escape"))
	require.NoError(t, err)
	assert.Equal(t, s.Dir(), filepath.Dir(path))

	err = s.Delete("  ")
	assert.True(t, errors.Is(err, &Error{Code: Invalid}))
}
