package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/staffdir/internal/core"
)

// testEnv points staffctl at a fresh file slot with an instant, reliable
// remote service.
func testEnv(t *testing.T) func(string) string {
	t.Helper()
	env := map[string]string{
		"STORAGE_DRIVER":   "file",
		"STORAGE_PATH":     t.TempDir(),
		"API_DELAY":        "0s",
		"API_FAILURE_RATE": "0",
		"API_RANDOM_SEED":  "1",
		"LOG_LEVEL":        "error",
	}
	return func(k string) string { return env[k] }
}

func run(t *testing.T, env func(string) string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(env, io.Discard)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func listJSON(t *testing.T, env func(string) string, args ...string) []core.Employee {
	t.Helper()
	out, err := run(t, env, append([]string{"list", "--json"}, args...)...)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []core.Employee
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return got
}

// ============================================================================
// list
// ============================================================================

func TestList(t *testing.T) {
	env := testEnv(t)

	out, err := run(t, env, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"Full Name", "Anna Larsen", "page 1 of 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	got := listJSON(t, env, "--per-page", "3", "--sort", "fullName", "--desc")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].FullName <= got[1].FullName {
		t.Errorf("descending order broken: %q before %q", got[0].FullName, got[1].FullName)
	}
}

func TestListRejectsBadInput(t *testing.T) {
	env := testEnv(t)

	if _, err := run(t, env, "list", "--sort", "salary"); !errors.Is(err, core.ErrUnknownSortKey) {
		t.Errorf("bad sort error = %v, want ErrUnknownSortKey", err)
	}
	if _, err := run(t, env, "list", "--page", "0"); !errors.Is(err, core.ErrInvalidPage) {
		t.Errorf("bad page error = %v, want ErrInvalidPage", err)
	}
	if _, err := run(t, env, "list", "--per-page", "1000"); !errors.Is(err, core.ErrInvalidPage) {
		t.Errorf("big page error = %v, want ErrInvalidPage", err)
	}
}

func TestBadConfig(t *testing.T) {
	env := func(k string) string {
		if k == "STORAGE_DRIVER" {
			return "floppy"
		}
		return ""
	}
	if _, err := run(t, env, "list"); err == nil {
		t.Fatal("expected config error")
	}
}

// ============================================================================
// import / export
// ============================================================================

func TestImport(t *testing.T) {
	env := testEnv(t)
	file := filepath.Join(t.TempDir(), "new.csv")
	body := "\uFEFFCode,Full Name,Department,Occupation,Date of Employment,Termination Date\n" +
		"EMP-100,Nora Vik,Legal,Counsel,2022-02-01,\n" +
		"EMP-001,Dup Licate,Legal,Counsel,,\n"
	if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, env, "import", "--dry-run", file)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out, "1 rows valid, 1 errors") {
		t.Errorf("dry run output = %q", out)
	}
	if got := listJSON(t, env, "--search", "nora"); len(got) != 0 {
		t.Fatalf("dry run saved %d rows", len(got))
	}

	out, err = run(t, env, "import", file)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "imported 1 employees") || !strings.Contains(out, "EMP-001") {
		t.Errorf("import output = %q", out)
	}
	got := listJSON(t, env, "--search", "nora")
	if len(got) != 1 || got[0].Code != "EMP-100" {
		t.Errorf("after import = %+v", got)
	}
}

func TestImportMissingFile(t *testing.T) {
	env := testEnv(t)
	if _, err := run(t, env, "import", filepath.Join(t.TempDir(), "nope.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want ErrNotExist", err)
	}
}

func TestExport(t *testing.T) {
	env := testEnv(t)
	dir := t.TempDir()

	out, err := run(t, env, "export", "--search", "finance")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(out, "\n")
	if lines[0] != "Code,Full Name,Department,Occupation,Date of Employment,Termination Date" {
		t.Errorf("header = %q", lines[0])
	}

	xlsx := filepath.Join(dir, "all.xlsx")
	if _, err := run(t, env, "export", "--format", "xlsx", "-o", xlsx); err != nil {
		t.Fatalf("export xlsx: %v", err)
	}
	f, err := os.Open(xlsx)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	res, err := core.ImportXLSX(f, nil)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if len(res.ValidEmployees) != 12 {
		t.Errorf("re-imported %d rows, want 12 (errors %v)", len(res.ValidEmployees), res.Errors)
	}

	if _, err := run(t, env, "export", "--format", "pdf"); err == nil {
		t.Error("expected unknown format error")
	}
}

// ============================================================================
// delete / reset
// ============================================================================

func TestDelete(t *testing.T) {
	env := testEnv(t)

	out, err := run(t, env, "delete", "1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "deleted 1") {
		t.Errorf("output = %q", out)
	}
	if got := listJSON(t, env, "--search", "anna"); len(got) != 0 {
		t.Errorf("deleted record still listed: %+v", got)
	}

	if _, err := run(t, env, "delete", "1"); !errors.Is(err, core.ErrEmployeeNotFound) {
		t.Errorf("second delete error = %v, want ErrEmployeeNotFound", err)
	}
}

func TestReset(t *testing.T) {
	env := testEnv(t)

	if _, err := run(t, env, "reset"); err == nil {
		t.Fatal("reset without --yes succeeded")
	}
	out, err := run(t, env, "reset", "--yes")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out, "removed 12 employees") {
		t.Errorf("output = %q", out)
	}
	// An empty slot is kept, not reseeded.
	if got := listJSON(t, env); len(got) != 0 {
		t.Errorf("after reset = %d rows", len(got))
	}
}
