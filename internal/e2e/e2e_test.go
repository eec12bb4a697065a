package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/okapi-tools/okapi/internal/cli"
)

// OpenAPI description with a model, a path parameter and a body.
const petSpec = "" +
	"openapi: 3.0.0\n" +
	"info:\n" +
	"  title: E2E Pets\n" +
	"  version: '1.0.0'\n" +
	"servers:\n" +
	"  - url: http://192.168.4.1\n" +
	"paths:\n" +
	"  /pets:\n" +
	"    post:\n" +
	"      summary: Add a pet\n" +
	"      requestBody:\n" +
	"        required: true\n" +
	"        content:\n" +
	"          application/json:\n" +
	"            schema:\n" +
	"              $ref: '#/components/schemas/Pet'\n" +
	"      responses:\n" +
	"        '201':\n" +
	"          description: created\n" +
	"  /pets/{petId}:\n" +
	"    get:\n" +
	"      summary: Get a pet\n" +
	"      parameters:\n" +
	"        - name: petId\n" +
	"          in: path\n" +
	"          required: true\n" +
	"          schema:\n" +
	"            type: integer\n" +
	"        - name: verbose\n" +
	"          in: query\n" +
	"          schema:\n" +
	"            type: boolean\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n" +
	"          content:\n" +
	"            application/json:\n" +
	"              schema:\n" +
	"                $ref: '#/components/schemas/Pet'\n" +
	"components:\n" +
	"  schemas:\n" +
	"    Pet:\n" +
	"      type: object\n" +
	"      required: [name]\n" +
	"      properties:\n" +
	"        name:\n" +
	"          type: string\n" +
	"          example: Rex\n" +
	"        age:\n" +
	"          type: integer\n" +
	"          example: 3\n" +
	"        tags:\n" +
	"          type: array\n" +
	"          items:\n" +
	"            type: string\n"

var allTargets = "text,html,client,server,openapi"

func writeTempSpec(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pets.yaml")
	if err := os.WriteFile(p, []byte(petSpec), 0o600); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return p
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	root := cli.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
	return out.String()
}

func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	var list []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		list = append(list, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	slices.Sort(list)
	h := sha256.New()
	for _, rel := range list {
		b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		_, _ = h.Write([]byte(rel))
		_, _ = h.Write(b)
	}
	return list, hex.EncodeToString(h.Sum(nil))
}

func TestE2E_ImportThenGenerate_Deterministic(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	runCLI(t, "--basedir", base, "import", "--input", writeTempSpec(t))

	dir1 := t.TempDir()
	dir2 := t.TempDir()
	runCLI(t, "--basedir", base, "generate", "E2E Pets", "--target", allTargets, "--out", dir1)
	runCLI(t, "--basedir", base, "generate", "E2E Pets", "--target", allTargets, "--out", dir2, "--force")

	files1, sum1 := digestDir(t, dir1)
	files2, sum2 := digestDir(t, dir2)
	if !slices.Equal(files1, files2) || sum1 != sum2 {
		t.Fatalf("generated outputs differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", files1, files2, sum1, sum2)
	}

	for _, rel := range []string{
		"e2e_pets.txt",
		"e2e_pets.html",
		"e2e_pets.openapi.yaml",
		"e2e_pets_client/e2e_pets_client.ino",
		"e2e_pets_client/api_calls.h",
		"e2e_pets_client/api_calls.cpp",
		"e2e_pets_server/e2e_pets_server.ino",
	} {
		if !slices.Contains(files1, rel) {
			t.Fatalf("missing %s in %v", rel, files1)
		}
	}

	// Optional: compile the sketches when an ESP32 toolchain is installed.
	if os.Getenv("OKAPI_E2E_ARDUINO") == "1" && haveCmd("arduino-cli") {
		for _, sketch := range []string{"e2e_pets_client", "e2e_pets_server"} {
			err := runCmdWithTimeout(dir1, 5*time.Minute, "arduino-cli", "compile", "--fqbn", "esp32:esp32:esp32", sketch)
			if err != nil {
				t.Skipf("arduino-cli compile skipped (likely missing cores or libraries): %v", err)
			}
		}
	}
}

func TestE2E_ExportedOpenAPIImportsBack(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	runCLI(t, "--basedir", base, "import", "--input", writeTempSpec(t))
	before := runCLI(t, "--basedir", base, "show", "E2E Pets")

	out := t.TempDir()
	runCLI(t, "--basedir", base, "generate", "E2E Pets", "--target", "openapi", "--out", out)

	again := t.TempDir()
	runCLI(t, "--basedir", again, "import", "--input", filepath.Join(out, "e2e_pets.openapi.yaml"))
	after := runCLI(t, "--basedir", again, "show", "E2E Pets")

	if before != after {
		t.Fatalf("document changed after an export/import cycle\nbefore:\n%s\nafter:\n%s", before, after)
	}
	if !strings.Contains(after, "/pets/{petId}?verbose={verbose}") {
		t.Fatalf("unexpected endpoint index:\n%s", after)
	}
}

func haveCmd(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runCmdWithTimeout(dir string, timeout time.Duration, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return &execError{err: err, output: out.String()}
	}
	return nil
}

type execError struct {
	err    error
	output string
}

func (e *execError) Error() string { return e.err.Error() + ": " + e.output }
