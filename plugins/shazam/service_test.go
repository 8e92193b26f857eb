package shazam

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testService(t *testing.T, handler http.Handler, passTimeout time.Duration) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Service{
		serviceURL:  server.URL,
		passTimeout: passTimeout,
		client:      server.Client(),
		started:     true,
	}
}

func TestStreamPasses(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pass := r.URL.Query().Get("pass")
		if pass == "2" {
			fmt.Fprint(w, `{"track":{"title":"Song A","subtitle":"Artist B","url":"https://s/1"}}`)
			return
		}
		fmt.Fprint(w, `{}`)
	}), time.Second)

	stream := svc.RecognizeStream([]byte("audio"), 3)
	ctx := context.Background()

	first, ok := stream.Next(ctx)
	if !ok || first.Index != 1 || first.Payload.Matched() {
		t.Fatalf("pass 1 = %+v ok=%v, want unmatched", first, ok)
	}
	second, ok := stream.Next(ctx)
	if !ok || second.Index != 2 || !second.Payload.Matched() {
		t.Fatalf("pass 2 = %+v ok=%v, want match", second, ok)
	}
	if second.Payload.Track.Title != "Song A" {
		t.Fatalf("pass 2 title = %q", second.Payload.Track.Title)
	}
	if _, ok := stream.Next(ctx); !ok {
		t.Fatalf("pass 3 should still be produced")
	}
	if _, ok := stream.Next(ctx); ok {
		t.Fatalf("stream must end after maxPasses")
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
}

func TestStreamEndsOnSidecarFailure(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}), time.Second)

	stream := svc.RecognizeStream([]byte("audio"), 5)
	if _, ok := stream.Next(context.Background()); ok {
		t.Fatalf("stream must end on sidecar failure")
	}
	if stream.Err() == nil {
		t.Fatalf("expected recorded stream error")
	}
}

func TestStreamEndsOnMalformedPayload(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{not json`)
	}), time.Second)

	stream := svc.RecognizeStream([]byte("audio"), 5)
	if _, ok := stream.Next(context.Background()); ok {
		t.Fatalf("stream must end on malformed payloads")
	}
	if stream.Err() == nil {
		t.Fatalf("expected recorded stream error")
	}
}

func TestStreamPassTimeoutYieldsNoMatch(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pass") == "1" {
			time.Sleep(300 * time.Millisecond)
		}
		fmt.Fprint(w, `{"track":{"title":"Song A","subtitle":"Artist B","url":"https://s/1"}}`)
	}), 50*time.Millisecond)

	stream := svc.RecognizeStream([]byte("audio"), 5)
	ctx := context.Background()

	first, ok := stream.Next(ctx)
	if !ok {
		t.Fatalf("timed-out pass must not end the stream: %v", stream.Err())
	}
	if first.Payload.Matched() {
		t.Fatalf("timed-out pass must yield no match")
	}
	second, ok := stream.Next(ctx)
	if !ok || !second.Payload.Matched() {
		t.Fatalf("pass after a timeout should proceed, got %+v ok=%v", second, ok)
	}
}

func TestStreamCancelledWorkflow(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := svc.RecognizeStream([]byte("audio"), 5)
	if _, ok := stream.Next(ctx); ok {
		t.Fatalf("cancelled workflow must end the stream")
	}
	if stream.Err() != nil {
		t.Fatalf("cancellation is not a stream failure: %v", stream.Err())
	}
}

func TestStreamNotStarted(t *testing.T) {
	svc := &Service{serviceURL: "http://127.0.0.1:0", passTimeout: time.Second, client: &http.Client{}}
	stream := svc.RecognizeStream([]byte("audio"), 5)
	if _, ok := stream.Next(context.Background()); ok {
		t.Fatalf("stream against a stopped sidecar must end immediately")
	}
	if stream.Err() == nil {
		t.Fatalf("expected recorded stream error")
	}
}
