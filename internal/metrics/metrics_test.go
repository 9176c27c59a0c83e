package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollector_RegistersAndServes(t *testing.T) {
	c := New()
	c.LedgerHeight.Set(42)
	c.BlocksAccepted.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "agora_ledger_height 42") {
		t.Errorf("expected ledger height gauge in output, got:\n%s", body)
	}
	if !strings.Contains(body, "agora_ledger_blocks_accepted_total 1") {
		t.Errorf("expected blocks accepted counter in output, got:\n%s", body)
	}
}

func TestCollector_RegisterOn(t *testing.T) {
	c := New()
	mux := http.NewServeMux()
	c.RegisterOn(mux, "/metrics")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
