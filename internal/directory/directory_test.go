package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/model"
)

func TestFetchAcrossBuckets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/buckets/index_Windows.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"buckets":["b1","b2"]}`))
	})
	mux.HandleFunc("/buckets/b1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sessions":[{"EXTERNAL_SERVER_UID":"1","Name":"Alpha","MapName":"exiles","ip":"1.2.3.4","Port":7777,"buildId":100}]}`))
	})
	mux.HandleFunc("/buckets/b2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sessions":[{"EXTERNAL_SERVER_UID":"2","Name":"Bravo","MapName":"siptah","ip":"5.6.7.8","Port":7778,"buildId":100}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(zerolog.Nop())
	c.overrideBaseURLForTest(srv.URL)

	servers, err := c.Fetch(context.Background(), model.BranchMain)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("got %d servers, want 2", len(servers))
	}
}

func TestFetchSkipsMalformedRecords(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/buckets/index_Windows.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"buckets":["b1"]}`))
	})
	mux.HandleFunc("/buckets/b1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sessions":[{"EXTERNAL_SERVER_UID":"1","Name":"Alpha","ip":"1.2.3.4","Port":7777},"not-an-object"]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(zerolog.Nop())
	c.overrideBaseURLForTest(srv.URL)

	servers, err := c.Fetch(context.Background(), model.BranchMain)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(servers) != 1 {
		t.Fatalf("got %d servers, want 1 (malformed record should be skipped)", len(servers))
	}
}

func TestNormalizeAddrPrefersObservedForPrivateReported(t *testing.T) {
	addr, invalid := normalizeAddr("192.168.1.5", "203.0.113.9")
	if invalid {
		t.Fatalf("expected valid address")
	}
	if addr.String() != "203.0.113.9" {
		t.Errorf("addr = %s, want 203.0.113.9 (observed)", addr.String())
	}
}

func TestNormalizeAddrBothPrivateSetsInvalid(t *testing.T) {
	addr, invalid := normalizeAddr("192.168.1.5", "10.0.0.1")
	if !invalid {
		t.Fatalf("expected invalid address when both reported and observed are private")
	}
	if addr.String() != "10.0.0.1" {
		t.Errorf("addr = %s, want 10.0.0.1 (fallback still chosen)", addr.String())
	}
}

func TestNormalizeAddrKeepsRoutableReported(t *testing.T) {
	addr, invalid := normalizeAddr("203.0.113.9", "")
	if invalid {
		t.Fatalf("expected valid address")
	}
	if addr.String() != "203.0.113.9" {
		t.Errorf("addr = %s, want 203.0.113.9", addr.String())
	}
}
