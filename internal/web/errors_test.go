package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/persons/internal/core"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"oversize", &core.OversizeError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"max bytes", fmt.Errorf("spool upload: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{"request", &core.RequestError{Message: core.MsgNoFile}, http.StatusBadRequest},
		{"parse", &core.ParseError{Line: 3, Message: "invalid csv"}, http.StatusBadRequest},
		{"validation", &core.ValidationError{Reason: "x"}, http.StatusBadRequest},
		{"empty update", core.ErrEmptyUpdate, http.StatusBadRequest},
		{"not found", fmt.Errorf("get person abc: %w", core.ErrNotFound), http.StatusNotFound},
		{"duplicate", &core.PersistenceError{ID: "abc", Err: core.ErrAlreadyExists}, http.StatusConflict},
		{"busy", core.ErrTooManyUploads, http.StatusServiceUnavailable},
		{"rate limited", errRateLimited, http.StatusTooManyRequests},
		{"deadline", fmt.Errorf("import people.csv: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/persons", nil)

	writeError(rec, req, errors.New(`pq: relation "persons" does not exist`))

	body := assertFailure(t, rec, http.StatusInternalServerError, "ERR000")
	if body["message"] != "An unexpected error occurred" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestWriteError_KeepsParseDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/persons/upload", nil)

	err := &core.ParseError{Line: 4, Message: "invalid csv: malformed table, expected 10 columns, got 2"}
	writeError(rec, req, err)

	body := assertFailure(t, rec, http.StatusBadRequest, "FILE002")
	if body["message"] != err.Error() {
		t.Errorf("message = %v, want %q", body["message"], err.Error())
	}
	if body["action"] == "" {
		t.Error("action is empty")
	}
}

func TestWriteError_LogLevels(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantMsg   string
		wantText  string
	}{
		{
			name:      "catalogued client error",
			err:       fmt.Errorf("get person abc: %w", core.ErrNotFound),
			wantLevel: "level=WARN",
			wantMsg:   `msg="request error"`,
			wantText:  "Code: PER001",
		},
		{
			name:      "catalogued server error",
			err:       &core.PersistenceError{ID: "abc", Err: errors.New("connection reset by peer")},
			wantLevel: "level=ERROR",
			wantMsg:   `msg="request error"`,
			wantText:  "Code: DB005",
		},
		{
			name:      "uncatalogued error",
			err:       errors.New(`pq: relation "persons" does not exist`),
			wantLevel: "level=ERROR",
			wantMsg:   `msg="unexpected request error"`,
			wantText:  `relation \"persons\" does not exist`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			prev := slog.Default()
			slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
			defer slog.SetDefault(prev)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/persons/abc", nil)
			writeError(rec, req, tt.err)

			out := buf.String()
			for _, want := range []string{tt.wantLevel, tt.wantMsg, tt.wantText} {
				if !strings.Contains(out, want) {
					t.Errorf("log %q does not contain %q", out, want)
				}
			}
		})
	}
}
