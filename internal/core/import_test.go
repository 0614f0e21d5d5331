package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const personHeader = "name,last_name,email,age,sex,address,country,degree,university,status\n"

func personLine(email, age, status string) string {
	return "Ana,Diaz," + email + "," + age + ",F,Calle 1,CO,BSc,UNAL," + status + "\n"
}

func newTestService(t *testing.T, gw Gateway) *Service {
	t.Helper()
	return NewService(gw, ServiceConfig{
		MaxFileSize:   1 << 20,
		MaxConcurrent: 2,
		MaxWaitTime:   100 * time.Millisecond,
		TempDir:       t.TempDir(),
	})
}

func csvUpload(name, body string) Upload {
	return Upload{FileName: name, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestImport_AllValid(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(t, gw)

	body := personHeader + personLine("a@x.io", "30", "true") + personLine("b@x.io", "41", "false")
	out, err := svc.Import(context.Background(), csvUpload("people.csv", body))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if out.Total != 2 || out.Accepted != 2 || out.Rejected() != 0 {
		t.Errorf("outcome = %+v", out)
	}
	if !out.Success() {
		t.Error("expected success")
	}
	if out.Message() != "Inserted 2 records successfully" {
		t.Errorf("Message() = %q", out.Message())
	}
	if out.Phase != PhaseCompleted {
		t.Errorf("Phase = %s", out.Phase)
	}
	if gw.size() != 2 {
		t.Errorf("store holds %d persons, want 2", gw.size())
	}
}

func TestImport_PartialSuccess(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(t, gw)

	body := personHeader +
		personLine("a@x.io", "30", "true") +
		personLine("b@x.io", "abc", "true") +
		personLine("c@x.io", "22", "0")

	out, err := svc.Import(context.Background(), csvUpload("people.csv", body))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if out.Total != 3 || out.Accepted != 2 {
		t.Fatalf("outcome = %+v", out)
	}
	want := []Rejection{{Line: 3, Reason: CoercionReason}}
	if len(out.Rejections) != 1 || out.Rejections[0] != want[0] {
		t.Errorf("Rejections = %+v, want %+v", out.Rejections, want)
	}
	if out.Message() != "Inserted 2 of 3 records" {
		t.Errorf("Message() = %q", out.Message())
	}
	if out.Accepted+out.Rejected() != out.Total {
		t.Error("accepted + rejected must equal total")
	}
}

func TestImport_MissingColumnRejectsEveryRow(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(t, gw)

	body := "name,last_name,age,sex,address,country,degree,university,status\n" +
		"Ana,Diaz,30,F,Calle 1,CO,BSc,UNAL,true\n" +
		"Luis,Paz,41,M,Calle 2,CO,MSc,UNAL,false\n"

	out, err := svc.Import(context.Background(), csvUpload("people.csv", body))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Success() {
		t.Error("import with zero accepted rows must not be a success")
	}
	if out.Accepted != 0 || out.Rejected() != 2 {
		t.Fatalf("outcome = %+v", out)
	}
	for i, rej := range out.Rejections {
		if rej.Line != i+2 || rej.Reason != "missing required field: email" {
			t.Errorf("rejection %d = %+v", i, rej)
		}
	}
	if gw.size() != 0 {
		t.Errorf("store holds %d persons, want 0", gw.size())
	}
}

func TestImport_HeaderOnly(t *testing.T) {
	svc := newTestService(t, newFakeGateway())

	out, err := svc.Import(context.Background(), csvUpload("people.csv", personHeader))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Total != 0 || out.Success() {
		t.Errorf("outcome = %+v", out)
	}
}

func TestImport_RequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		upload  Upload
		wantMsg string
	}{
		{name: "no body", upload: Upload{FileName: "a.csv"}, wantMsg: MsgNoFile},
		{name: "empty name", upload: csvUpload("", personHeader), wantMsg: MsgNoFileName},
		{name: "wrong extension", upload: csvUpload("people.txt", personHeader), wantMsg: MsgWrongFileType},
		{name: "no extension", upload: csvUpload("people", personHeader), wantMsg: MsgWrongFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			svc := newTestService(t, gw)

			_, err := svc.Import(context.Background(), tt.upload)
			var re *RequestError
			if !errors.As(err, &re) {
				t.Fatalf("expected *RequestError, got %v", err)
			}
			if re.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", re.Message, tt.wantMsg)
			}
			if gw.size() != 0 {
				t.Error("request errors must not write")
			}
		})
	}
}

func TestImport_UppercaseExtension(t *testing.T) {
	svc := newTestService(t, newFakeGateway())
	body := personHeader + personLine("a@x.io", "30", "true")

	out, err := svc.Import(context.Background(), csvUpload("PEOPLE.CSV", body))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Accepted != 1 {
		t.Errorf("Accepted = %d, want 1", out.Accepted)
	}
}

func TestImport_Oversize(t *testing.T) {
	gw := newFakeGateway()
	svc := NewService(gw, ServiceConfig{MaxFileSize: 64, TempDir: t.TempDir()})
	body := personHeader + personLine("a@x.io", "30", "true")

	t.Run("declared size", func(t *testing.T) {
		_, err := svc.Import(context.Background(), csvUpload("people.csv", body))
		var oe *OversizeError
		if !errors.As(err, &oe) {
			t.Fatalf("expected *OversizeError, got %v", err)
		}
	})

	t.Run("undeclared size", func(t *testing.T) {
		_, err := svc.Import(context.Background(), Upload{FileName: "people.csv", Body: strings.NewReader(body)})
		var oe *OversizeError
		if !errors.As(err, &oe) {
			t.Fatalf("expected *OversizeError, got %v", err)
		}
	})

	if gw.size() != 0 {
		t.Error("oversize uploads must not write")
	}
}

func TestImport_ParseErrorWritesNothing(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(t, gw)

	body := personHeader + personLine("a@x.io", "30", "true") + "Ana,Diaz\n"
	_, err := svc.Import(context.Background(), csvUpload("people.csv", body))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Line != 3 {
		t.Errorf("Line = %d, want 3", pe.Line)
	}
	if gw.size() != 0 {
		t.Error("parse errors must not write")
	}
}

func TestImport_EmptyFile(t *testing.T) {
	svc := newTestService(t, newFakeGateway())

	_, err := svc.Import(context.Background(), csvUpload("people.csv", ""))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestImport_GatewayFailureBecomesRejection(t *testing.T) {
	gw := newFakeGateway()
	gw.failOn = "b@x.io"
	svc := newTestService(t, gw)

	body := personHeader + personLine("a@x.io", "30", "true") + personLine("b@x.io", "31", "true") + personLine("c@x.io", "32", "true")
	out, err := svc.Import(context.Background(), csvUpload("people.csv", body))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Accepted != 2 || out.Rejected() != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Rejections[0].Line != 3 || !strings.Contains(out.Rejections[0].Reason, "write rejected") {
		t.Errorf("rejection = %+v", out.Rejections[0])
	}
}

func TestImport_UniqueIDs(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(t, gw)

	var b strings.Builder
	b.WriteString(personHeader)
	for i := 0; i < 200; i++ {
		b.WriteString(personLine("same@x.io", "30", "true"))
	}

	out, err := svc.Import(context.Background(), csvUpload("people.csv", b.String()))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Accepted != 200 || gw.size() != 200 {
		t.Errorf("accepted %d, stored %d; identical rows must still get distinct ids", out.Accepted, gw.size())
	}
}

func TestImport_CancelledBetweenRows(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	gw.onCreate = cancel

	body := personHeader + personLine("a@x.io", "30", "true") + personLine("b@x.io", "31", "true")
	out, err := svc.Import(ctx, csvUpload("people.csv", body))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if gw.size() != 1 {
		t.Errorf("store holds %d persons, want 1", gw.size())
	}
	if out == nil {
		t.Fatal("expected the partial outcome alongside the error")
	}
	if out.Phase != PhaseInterrupted || !out.Interrupted() {
		t.Errorf("Phase = %s, want %s", out.Phase, PhaseInterrupted)
	}
	if out.Accepted != 1 || out.Total != 2 || out.Processed() != 1 {
		t.Errorf("outcome = %+v", out)
	}
	if out.Message() != "Import interrupted: inserted 1 of 2 records" {
		t.Errorf("Message() = %q", out.Message())
	}
}

// stallingGateway stores the first `after` persons and then blocks every
// write until the context is done.
type stallingGateway struct {
	*fakeGateway
	after int
	n     atomic.Int32
}

func (g *stallingGateway) Create(ctx context.Context, id string, p Person) error {
	if int(g.n.Add(1)) > g.after {
		<-ctx.Done()
		return ctx.Err()
	}
	return g.fakeGateway.Create(ctx, id, p)
}

func TestImport_TimeoutReportsStoredRows(t *testing.T) {
	gw := &stallingGateway{fakeGateway: newFakeGateway(), after: 3}
	svc := NewService(gw, ServiceConfig{
		ImportTimeout: 50 * time.Millisecond,
		TempDir:       t.TempDir(),
	})

	var b strings.Builder
	b.WriteString(personHeader)
	for i := 0; i < 10; i++ {
		b.WriteString(personLine(fmt.Sprintf("p%d@x.io", i), "30", "true"))
	}

	out, err := svc.Import(context.Background(), csvUpload("people.csv", b.String()))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if out == nil {
		t.Fatal("expected the partial outcome alongside the error")
	}
	if out.Accepted != gw.size() || out.Accepted != 3 {
		t.Errorf("Accepted = %d, stored = %d, want 3", out.Accepted, gw.size())
	}
	if out.Total != 10 || !out.Interrupted() {
		t.Errorf("outcome = %+v", out)
	}
	// The write that hit the deadline is the only rejected row.
	if out.Rejected() != 1 || out.Rejections[0].Line != 5 {
		t.Errorf("Rejections = %+v", out.Rejections)
	}
}

func TestImport_RoundTrip(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(t, gw)

	body := personHeader + personLine("ana@x.io", "34", "0")
	out, err := svc.Import(context.Background(), csvUpload("people.csv", body))
	if err != nil || out.Accepted != 1 {
		t.Fatalf("Import = %+v, %v", out, err)
	}

	var id string
	gw.mu.Lock()
	for k := range gw.docs {
		id = k
	}
	gw.mu.Unlock()

	got, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := StoredPerson{
		ID: id,
		Person: Person{
			Name:       "Ana",
			LastName:   "Diaz",
			Email:      "ana@x.io",
			Age:        34,
			Sex:        "F",
			Address:    "Calle 1",
			Country:    "CO",
			Degree:     "BSc",
			University: "UNAL",
			Status:     false,
		},
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestImport_LogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	svc := newTestService(t, newFakeGateway())
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")

	body := personHeader + personLine("a@x.io", "30", "true")
	if _, err := svc.Import(ctx, csvUpload("people.csv", body)); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	for _, msg := range []string{"import started", "import completed"} {
		line := logLine(buf.String(), msg)
		if line == "" {
			t.Fatalf("no %q entry in:\n%s", msg, buf.String())
		}
		if !strings.Contains(line, "request_id=req-42") {
			t.Errorf("%q entry has no request_id: %s", msg, line)
		}
	}
}

func logLine(out, msg string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "msg=\""+msg+"\"") {
			return line
		}
	}
	return ""
}

func TestImport_RemovesSpoolFile(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(newFakeGateway(), ServiceConfig{TempDir: dir})

	bodies := []string{
		personHeader + personLine("a@x.io", "30", "true"),
		"bad,\xff\n",
	}
	for _, body := range bodies {
		_, _ = svc.Import(context.Background(), csvUpload("people.csv", body))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("spool files left behind: %v", entries)
	}
}

func TestImport_BusyLimiter(t *testing.T) {
	svc := NewService(newFakeGateway(), ServiceConfig{
		MaxConcurrent: 1,
		MaxWaitTime:   20 * time.Millisecond,
		TempDir:       t.TempDir(),
	})

	if err := svc.limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer svc.limiter.Release()

	_, err := svc.Import(context.Background(), csvUpload("people.csv", personHeader))
	if !errors.Is(err, ErrTooManyUploads) {
		t.Errorf("expected ErrTooManyUploads, got %v", err)
	}
}

func TestImportFile(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(t, gw)

	path := filepath.Join(t.TempDir(), "people.csv")
	body := personHeader + personLine("a@x.io", "30", "true")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out, err := svc.ImportFile(context.Background(), path, "")
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if out.FileName != "people.csv" || out.Accepted != 1 {
		t.Errorf("outcome = %+v", out)
	}

	if _, err := svc.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), ""); err == nil {
		t.Error("expected an error for a missing file")
	}
}
