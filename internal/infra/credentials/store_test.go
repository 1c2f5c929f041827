package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token   string
	err     error
	reads   int
	execLog []struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execLog = append(s.execLog, struct {
		query string
		args  []any
	}{query: query, args: args})
	if s.err != nil {
		return pgconn.CommandTag{}, s.err
	}
	switch {
	case strings.Contains(query, "delete from integration_tokens"):
		s.token = ""
	case strings.Contains(query, "insert into integration_tokens"):
		s.token = args[1].(string)
	}
	return pgconn.CommandTag{}, nil
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.reads++
	if s.err == nil && s.token == "" {
		return stubRow{err: pgx.ErrNoRows}
	}
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) lastExec() (string, []any) {
	if len(s.execLog) == 0 {
		return "", nil
	}
	last := s.execLog[len(s.execLog)-1]
	return last.query, last.args
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestGeminiAPIKey(t *testing.T) {
	store := NewStore(&stubExecutor{token: " abc123 "})
	key, err := store.GeminiAPIKey(context.Background())
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestGeminiAPIKey_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{})
	key, err := store.GeminiAPIKey(context.Background())
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestGeminiAPIKey_Error(t *testing.T) {
	store := NewStore(&stubExecutor{err: errors.New("connection refused")})
	if _, err := store.GeminiAPIKey(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSetGeminiAPIKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetGeminiAPIKey(context.Background(), " secret "); err != nil {
		t.Fatalf("SetGeminiAPIKey error: %v", err)
	}
	_, args := exec.lastExec()
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(args))
	}
	if v, ok := args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", args[1], args[1])
	}
	var props map[string]any
	if err := json.Unmarshal(args[2].([]byte), &props); err != nil {
		t.Fatalf("properties should be json: %v", err)
	}
	if _, ok := props["selected_at"]; !ok {
		t.Fatalf("selected_at missing: %v", props)
	}
}

func TestSetGeminiAPIKeyEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetGeminiAPIKey(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestClearGeminiAPIKey(t *testing.T) {
	exec := &stubExecutor{token: "secret"}
	store := NewStore(exec)
	if err := store.ClearGeminiAPIKey(context.Background()); err != nil {
		t.Fatalf("ClearGeminiAPIKey error: %v", err)
	}
	query, args := exec.lastExec()
	if !strings.Contains(query, "delete from integration_tokens") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 1 || args[0] != ProviderGemini {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestEnsureSchema(t *testing.T) {
	exec := &stubExecutor{}
	if err := NewStore(exec).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	query, _ := exec.lastExec()
	if !strings.Contains(query, "create table if not exists integration_tokens") {
		t.Fatalf("unexpected query %q", query)
	}

	exec.err = errors.New("permission denied")
	if err := NewStore(exec).EnsureSchema(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
