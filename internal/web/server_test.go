package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/JonMunkholm/staffdir/internal/config"
	"github.com/JonMunkholm/staffdir/internal/core"
	"github.com/JonMunkholm/staffdir/internal/remote"
	"github.com/JonMunkholm/staffdir/internal/slot"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	cfg.Rate.Enabled = false
	return cfg
}

// newTestServer serves the bundled dataset from a memory slot.
func newTestServer(t *testing.T, cfg *config.Config, failureRate float64) *Server {
	t.Helper()
	api := remote.NewSimulator(remote.Options{FailureRate: failureRate, Seed: 1})
	store := core.NewStore(slot.NewMemory(), api, core.StoreOptions{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s := NewServer(store, cfg)
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, s *Server, method, target string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(b)
}

func upload(t *testing.T, filename string, content []byte) (io.Reader, http.Header) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, http.Header{"Content-Type": {mw.FormDataContentType()}}
}

func total(t *testing.T, s *Server) int {
	t.Helper()
	return decode[ListResponse](t, do(t, s, http.MethodGet, "/api/employees", nil, nil)).Total
}

// ============================================================================
// Listing
// ============================================================================

func TestListEmployees_Defaults(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodGet, "/api/employees", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	list := decode[ListResponse](t, rec)

	if list.Total != 12 || list.TotalPages != 2 || len(list.Employees) != 10 {
		t.Errorf("total=%d pages=%d rows=%d, want 12, 2, 10", list.Total, list.TotalPages, len(list.Employees))
	}
	if list.SortKey != core.SortByFullName || !list.SortAsc {
		t.Errorf("sort = %s asc=%v, want fullName asc", list.SortKey, list.SortAsc)
	}
	if got := list.Employees[0].FullName; got != "Anna Larsen" {
		t.Errorf("first row = %q, want Anna Larsen", got)
	}
	if list.Employees[0].EmploymentStatus != core.LabelEmployed {
		t.Errorf("EmploymentStatus = %q", list.Employees[0].EmploymentStatus)
	}
}

func TestListEmployees_Query(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	list := decode[ListResponse](t, do(t, s, http.MethodGet,
		"/api/employees?search=ENGINEERING&sort=dateOfEmployment&dir=desc&perPage=2&page=2", nil, nil))

	if list.Total != 3 || list.TotalPages != 2 {
		t.Fatalf("total=%d pages=%d, want 3 and 2", list.Total, list.TotalPages)
	}
	if len(list.Employees) != 1 || list.Employees[0].FullName != "Clara Madsen" {
		t.Errorf("page 2 = %+v, want only Clara Madsen", list.Employees)
	}
}

func TestListEmployees_BadParams(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	tests := []struct {
		query    string
		wantCode string
	}{
		{"?sort=code", "VAL003"},
		{"?page=0", "VAL002"},
		{"?page=abc", "VAL002"},
		{"?perPage=1000", "VAL002"},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodGet, "/api/employees"+tt.query, nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.query, rec.Code)
			continue
		}
		if got := decode[ErrorResponse](t, rec).Code; got != tt.wantCode {
			t.Errorf("%s: code = %s, want %s", tt.query, got, tt.wantCode)
		}
	}
}

func TestGetEmployee(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodGet, "/api/employees/1", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[employeeRow](t, rec).Code; got != "EMP-001" {
		t.Errorf("code = %q, want EMP-001", got)
	}

	rec = do(t, s, http.MethodGet, "/api/employees/999", nil, nil)
	if rec.Code != http.StatusNotFound || decode[ErrorResponse](t, rec).Code != "API003" {
		t.Errorf("unknown id: status = %d body = %s", rec.Code, rec.Body)
	}
}

// ============================================================================
// Sorting
// ============================================================================

func TestToggleSort(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodPost, "/api/sort/fullName", nil, nil)
	if got := decode[SortResponse](t, rec); got.SortKey != core.SortByFullName || got.SortAsc {
		t.Fatalf("toggle = %+v, want fullName desc", got)
	}

	list := decode[ListResponse](t, do(t, s, http.MethodGet, "/api/employees", nil, nil))
	if got := list.Employees[0].FullName; got != "William Skov" {
		t.Errorf("first row after toggle = %q, want William Skov", got)
	}

	rec = do(t, s, http.MethodPost, "/api/sort/department", nil, nil)
	if got := decode[SortResponse](t, rec); got.SortKey != core.SortByDepartment || !got.SortAsc {
		t.Errorf("new key = %+v, want department asc", got)
	}

	if rec := do(t, s, http.MethodPost, "/api/sort/code", nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown key status = %d, want 400", rec.Code)
	}
}

// ============================================================================
// Mutations
// ============================================================================

func TestCreateEmployee(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodPost, "/api/employees", jsonBody(t, map[string]string{
		"id": "1", "code": " NEW-1 ", "fullName": "Nora Dahl", "occupation": "Analyst", "department": "Finance",
	}), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	res := decode[MutationResponse](t, rec)
	if !res.Success || res.ID == "" || res.ID == "1" || res.Alert.Type != AlertSuccess {
		t.Errorf("response = %+v", res)
	}

	list := decode[ListResponse](t, do(t, s, http.MethodGet, "/api/employees?search=nora", nil, nil))
	if list.Total != 1 || list.Employees[0].Code != "NEW-1" {
		t.Errorf("created record = %+v", list.Employees)
	}
	if got := total(t, s); got != 13 {
		t.Errorf("total = %d, want 13", got)
	}
}

func TestCreateEmployee_Validation(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodPost, "/api/employees", jsonBody(t, map[string]string{
		"code": "EMP-001", "fullName": "N0ra", "occupation": "", "department": "Finance",
	}), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	res := decode[ValidationResponse](t, rec)
	want := core.FieldErrors{
		core.FieldCode:       core.MsgCodeUnique,
		core.FieldFullName:   core.MsgFullNameInvalid,
		core.FieldOccupation: core.MsgOccupationRequired,
	}
	for field, msg := range want {
		if res.Errors[field] != msg {
			t.Errorf("errors[%s] = %q, want %q", field, res.Errors[field], msg)
		}
	}
	if total(t, s) != 12 {
		t.Error("invalid record was stored")
	}
}

func TestCreateEmployee_ConcurrentSameCode(t *testing.T) {
	api := remote.NewSimulator(remote.Options{Delay: 50 * time.Millisecond, Seed: 1})
	store := core.NewStore(slot.NewMemory(), api, core.StoreOptions{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s := NewServer(store, testConfig(t))
	t.Cleanup(s.Close)

	statuses := make([]int, 2)
	var wg sync.WaitGroup
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/employees", strings.NewReader(
				`{"code":"DUP-1","fullName":"Dana Lund","occupation":"Analyst","department":"Finance"}`))
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, req)
			statuses[i] = rec.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range statuses {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict, http.StatusUnprocessableEntity:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if created != 1 {
		t.Errorf("statuses = %v, want exactly one 201", statuses)
	}

	list := decode[ListResponse](t, do(t, s, http.MethodGet, "/api/employees?search=dana", nil, nil))
	if list.Total != 1 {
		t.Errorf("records with code DUP-1 = %d, want 1", list.Total)
	}
}

func TestCreateEmployee_BadJSON(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)
	if rec := do(t, s, http.MethodPost, "/api/employees", strings.NewReader("{"), nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateEmployee(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodPut, "/api/employees/1", jsonBody(t, map[string]string{
		"code": "EMP-001", "fullName": "Anna Berg", "occupation": "Architect", "department": "Engineering",
	}), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if res := decode[MutationResponse](t, rec); !res.Success || res.ID != "1" {
		t.Errorf("response = %+v", res)
	}

	got := decode[employeeRow](t, do(t, s, http.MethodGet, "/api/employees/1", nil, nil))
	if got.FullName != "Anna Berg" || got.Occupation != "Architect" {
		t.Errorf("record = %+v", got)
	}
	if total(t, s) != 12 {
		t.Error("update changed the record count")
	}

	rec = do(t, s, http.MethodPut, "/api/employees/999", jsonBody(t, map[string]string{"code": "X"}), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}
}

func TestDeleteEmployee(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodDelete, "/api/employees/1", nil, nil)
	if rec.Code != http.StatusOK || !decode[MutationResponse](t, rec).Success {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := total(t, s); got != 11 {
		t.Errorf("total = %d, want 11", got)
	}

	if rec := do(t, s, http.MethodDelete, "/api/employees/1", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("repeat delete status = %d, want 200", rec.Code)
	}
}

func TestMutations_RemoteFailure(t *testing.T) {
	s := newTestServer(t, testConfig(t), 1)

	rec := do(t, s, http.MethodPost, "/api/employees", jsonBody(t, map[string]string{
		"code": "NEW-1", "fullName": "Nora Dahl", "occupation": "Analyst", "department": "Finance",
	}), nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("create status = %d, want 502", rec.Code)
	}
	if res := decode[MutationResponse](t, rec); res.Success || res.Alert.Type != AlertError {
		t.Errorf("create response = %+v", res)
	}

	if rec := do(t, s, http.MethodDelete, "/api/employees/1", nil, nil); rec.Code != http.StatusBadGateway {
		t.Errorf("delete status = %d, want 502", rec.Code)
	}
	if got := total(t, s); got != 12 {
		t.Errorf("total = %d, want 12", got)
	}
}

func TestResetAndReload(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	if rec := do(t, s, http.MethodPost, "/api/reset", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if got := total(t, s); got != 0 {
		t.Errorf("total after reset = %d, want 0", got)
	}

	rec := do(t, s, http.MethodPost, "/api/reload", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reload status = %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec)["count"]; got != float64(0) {
		t.Errorf("count after reload = %v, want 0 (empty list is persisted)", got)
	}
}

// ============================================================================
// Export / import
// ============================================================================

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodGet, "/api/export.csv?search=finance&perPage=1", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="employees.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	lines := strings.Split(rec.Body.String(), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 (pagination ignored)", len(lines))
	}
	if !strings.HasPrefix(lines[1], `"EMP-007","Emma Vestergaard"`) {
		t.Errorf("first row = %s, want Emma Vestergaard by name order", lines[1])
	}
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodGet, "/api/export.xlsx", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != core.XLSXContentType {
		t.Errorf("Content-Type = %q", got)
	}
	res, err := core.ImportXLSX(bytes.NewReader(rec.Body.Bytes()), nil)
	if err != nil {
		t.Fatalf("exported workbook does not import: %v", err)
	}
	if len(res.ValidEmployees) != 12 {
		t.Errorf("workbook rows = %d, want 12", len(res.ValidEmployees))
	}
}

const importCSV = "Code,Full Name,Department,Occupation,Date of Employment,Termination Date\n" +
	"EMP-001,Someone Else,Finance,Analyst,,\n" +
	"NEW-1,Nora Dahl,Finance,Analyst,2020-01-01,\n"

func TestImport(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	body, header := upload(t, "staff.csv", []byte("\xEF\xBB\xBF"+importCSV))
	rec := do(t, s, http.MethodPost, "/api/import", body, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	res := decode[ImportResponse](t, rec)
	if res.Imported != 1 {
		t.Errorf("imported = %d, want 1", res.Imported)
	}
	wantErr := `Row 2: Code "EMP-001" already exists in the system.`
	if len(res.Errors) != 1 || res.Errors[0] != wantErr {
		t.Errorf("errors = %v, want [%s]", res.Errors, wantErr)
	}
	if res.Alert.Type != AlertWarning {
		t.Errorf("alert = %+v, want warning", res.Alert)
	}
	if got := total(t, s); got != 13 {
		t.Errorf("total = %d, want 13", got)
	}
}

func TestImportPreview_DoesNotMerge(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	body, header := upload(t, "staff.csv", []byte(importCSV))
	rec := do(t, s, http.MethodPost, "/api/import/preview", body, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	res := decode[core.ImportResult](t, rec)
	if len(res.ValidEmployees) != 1 || len(res.Errors) != 1 {
		t.Errorf("preview = %+v", res)
	}
	if got := total(t, s); got != 12 {
		t.Errorf("total = %d, want 12", got)
	}
}

func TestImport_XLSX(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	art, err := core.XLSXArtifact([]core.Employee{
		{Code: "X-1", FullName: "Xena Holt", Department: "Legal", Occupation: "Paralegal"},
	}, core.DateFormatter{})
	if err != nil {
		t.Fatal(err)
	}
	body, header := upload(t, "staff.XLSX", art.Data)
	rec := do(t, s, http.MethodPost, "/api/import", body, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if res := decode[ImportResponse](t, rec); res.Imported != 1 || res.Alert.Type != AlertSuccess {
		t.Errorf("response = %+v", res)
	}
}

func TestImport_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Import.MaxFileSize = 64
	s := newTestServer(t, cfg, 0)

	t.Run("no file", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/import", strings.NewReader(""), nil)
		if rec.Code != http.StatusBadRequest || decode[ErrorResponse](t, rec).Code != "FILE004" {
			t.Errorf("status = %d body = %s", rec.Code, rec.Body)
		}
	})

	t.Run("too large", func(t *testing.T) {
		body, header := upload(t, "big.csv", []byte(importCSV+strings.Repeat("x", 100)))
		rec := do(t, s, http.MethodPost, "/api/import", body, header)
		if rec.Code != http.StatusRequestEntityTooLarge || decode[ErrorResponse](t, rec).Code != "FILE001" {
			t.Errorf("status = %d body = %s", rec.Code, rec.Body)
		}
	})

	t.Run("not a workbook", func(t *testing.T) {
		body, header := upload(t, "fake.xlsx", []byte("Code\nA1"))
		rec := do(t, s, http.MethodPost, "/api/import", body, header)
		if rec.Code != http.StatusBadRequest || decode[ErrorResponse](t, rec).Code != "FILE003" {
			t.Errorf("status = %d body = %s", rec.Code, rec.Body)
		}
	})
}

// ============================================================================
// Pages and middleware
// ============================================================================

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodGet, "/?search=%3Cb%3E", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<b>") {
		t.Error("search term rendered unescaped")
	}
	if !strings.Contains(body, "No employees found") {
		t.Error("empty result message missing")
	}

	body = do(t, s, http.MethodGet, "/", nil, nil).Body.String()
	if !strings.Contains(body, "Anna Larsen") || !strings.Contains(body, "&amp;sort=department") {
		t.Errorf("page body missing rows or sort links:\n%s", body)
	}
}

func TestIndexPage_HTMXError(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodGet, "/?page=0", nil, http.Header{"Hx-Request": {"true"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `role="alert"`) || !strings.Contains(body, "VAL002") {
		t.Errorf("alert fragment = %s", body)
	}
}

func TestSeedData(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodGet, "/data/employees.json", nil, nil)
	if !bytes.Equal(rec.Body.Bytes(), remote.SeedJSON()) {
		t.Error("seed endpoint does not serve the bundled dataset")
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)

	rec := do(t, s, http.MethodGet, "/api/employees", nil, nil)
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestRateLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig(t)
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 2

	api := remote.NewSimulator(remote.Options{Seed: 1})
	store := core.NewStore(slot.NewMemory(), api, core.StoreOptions{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := NewServer(store, cfg)
	defer s.Close()

	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodGet, "/api/employees", nil, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := do(t, s, http.MethodGet, "/api/employees", nil, nil)
	if rec.Code != http.StatusTooManyRequests || decode[ErrorResponse](t, rec).Code != "REQ004" {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body)
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	s := newTestServer(t, testConfig(t), 0)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
