package nemweb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:    baseURL,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
}

func TestListParsesIndex(t *testing.T) {
	const page = `<html><body>
<a href="/Reports/Current/Dispatch_SCADA/">[To Parent Directory]</a><br>
<a href="/Reports/Current/Dispatch_SCADA/PUBLIC_DISPATCHSCADA_202501010005_0000000111.zip">PUBLIC_DISPATCHSCADA_202501010005_0000000111.zip</a><br>
<a href="PUBLIC_DISPATCHSCADA_202501010010_0000000112.zip">PUBLIC_DISPATCHSCADA_202501010010_0000000112.zip</a><br>
<a href="web.config">web.config</a><br>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	names, err := testClient(srv.URL).List(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(names), names)
	}
	if names[0] != "PUBLIC_DISPATCHSCADA_202501010005_0000000111.zip" {
		t.Errorf("full hrefs should reduce to basenames, got %q", names[0])
	}
}

func TestGetRetriesTransient(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	body, err := testClient(srv.URL).Get(context.Background(), srv.URL+"/file.zip")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("unexpected body %q", body)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestGetNotFoundNoRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Get(context.Background(), srv.URL+"/missing.zip")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls != 1 {
		t.Errorf("404 must not be retried, got %d attempts", calls)
	}
}

func TestGetUnavailableAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Get(context.Background(), srv.URL+"/file.zip")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected maxRetries+1 = 3 attempts, got %d", calls)
	}
}

func TestGetProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Get(context.Background(), srv.URL+"/file.zip")
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if pe.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", pe.StatusCode)
	}
}

func TestUserAgentSet(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	testClient(srv.URL).Get(context.Background(), srv.URL+"/file.zip")
	if got != userAgent {
		t.Errorf("User-Agent = %q, want %q", got, userAgent)
	}
}
