package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/krishimitra/krishimitra-api/internal/cache"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(cache.New())
	client.endpoint = server.URL
	return client
}

func TestTranslate_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translatedText":"टमाटर की कीमत"}`))
	})

	got := client.Translate(context.Background(), "tomato price", "hi")
	if got != "टमाटर की कीमत" {
		t.Fatalf("Translate = %q", got)
	}
}

func TestTranslate_FailureReturnsSourceText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	got := client.Translate(context.Background(), "tomato price", "hi")
	if got != "tomato price" {
		t.Fatalf("failure must return the input unchanged, got %q", got)
	}
}

func TestTranslate_CachesResults(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"translatedText":"उत्तर"}`))
	})

	for i := 0; i < 3; i++ {
		if got := client.Translate(context.Background(), "answer", "hi"); got != "उत्तर" {
			t.Fatalf("Translate = %q", got)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("cached translation must not refetch, calls = %d", n)
	}
}

func TestTranslate_EmptyInputs(t *testing.T) {
	client := NewClient(cache.New())
	if got := client.Translate(context.Background(), "", "hi"); got != "" {
		t.Fatalf("empty text should pass through, got %q", got)
	}
	if got := client.Translate(context.Background(), "hello", ""); got != "hello" {
		t.Fatalf("empty target should pass through, got %q", got)
	}
}
