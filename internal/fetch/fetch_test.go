package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"
)

func TestDecodeDataURI(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		wantData string
		wantMime string
		wantErr  bool
	}{
		{"base64", "data:application/octet-stream;base64,AQID", "\x01\x02\x03", "application/octet-stream", false},
		{"plain text", "data:text/plain,void%20main()", "void main()", "text/plain", false},
		{"missing comma", "data:text/plain", "", "", true},
		{"bad base64", "data:;base64,@@@", "", "", true},
		{"not data", "buffer.bin", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mime, err := DecodeDataURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if string(data) != tt.wantData || mime != tt.wantMime {
				t.Errorf("got (%q, %q), want (%q, %q)", data, mime, tt.wantData, tt.wantMime)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve("models/box", "./box%20data.bin"); got != "models/box/box data.bin" {
		t.Errorf("relative: got %q", got)
	}
	if got := Resolve("models", "data:,x"); got != "data:,x" {
		t.Errorf("data uri should pass through, got %q", got)
	}
	if got := Resolve("", "a.bin"); got != "a.bin" {
		t.Errorf("empty base: got %q", got)
	}
}

func TestMailboxAppliesOnDrainOnly(t *testing.T) {
	life := NewLiveness()
	box := NewMailbox(life)

	var got []string
	deliver := box.Deliverer(func(r Result) { got = append(got, string(r.Data)) })
	deliver(Result{Data: []byte("a")})

	if len(got) != 0 {
		t.Fatal("completion applied before Drain")
	}
	if box.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", box.Pending())
	}
	if n := box.Drain(); n != 1 || len(got) != 1 || got[0] != "a" {
		t.Errorf("drain applied %d, got %v", n, got)
	}
}

func TestMailboxDropsAfterRevoke(t *testing.T) {
	life := NewLiveness()
	box := NewMailbox(life)

	applied := false
	early := box.Deliverer(func(Result) { applied = true })
	queued := box.Deliverer(func(Result) { applied = true })
	queued(Result{})

	life.Revoke()
	early(Result{})

	if n := box.Drain(); n != 0 || applied {
		t.Errorf("revoked owner received %d completions", n)
	}
	if box.Dropped() != 2 {
		t.Errorf("dropped = %d, want 2", box.Dropped())
	}
}

func TestMailboxConcurrentPosts(t *testing.T) {
	box := NewMailbox(NewLiveness())
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		deliver := box.Deliverer(func(Result) { count++ })
		wg.Add(1)
		go func() {
			defer wg.Done()
			deliver(Result{})
		}()
	}
	wg.Wait()
	if n := box.Drain(); n != 50 || count != 50 {
		t.Errorf("drained %d, applied %d, want 50", n, count)
	}
}

func TestMemoryManualDelivery(t *testing.T) {
	m := NewMemory()
	m.Manual = true
	m.Put("a.bin", []byte{1})
	m.Fail("b.bin", errors.New("boom"))

	var results []Result
	m.Fetch(context.Background(), "a.bin", func(r Result) { results = append(results, r) })
	m.Fetch(context.Background(), "b.bin", func(r Result) { results = append(results, r) })
	m.Fetch(context.Background(), "c.bin", func(r Result) { results = append(results, r) })

	if len(results) != 0 {
		t.Fatal("manual fetcher delivered before Flush")
	}
	if n := m.Flush(); n != 3 {
		t.Fatalf("flushed %d, want 3", n)
	}
	if results[0].Err != nil || results[0].Data[0] != 1 {
		t.Errorf("a.bin: %+v", results[0])
	}
	if results[1].Err == nil {
		t.Error("b.bin should fail")
	}
	if !errors.Is(results[2].Err, ErrNotFound) {
		t.Errorf("c.bin: want ErrNotFound, got %v", results[2].Err)
	}
	if got := m.Requests(); len(got) != 3 || got[1] != "b.bin" {
		t.Errorf("requests: %v", got)
	}
}

func TestFSFetch(t *testing.T) {
	fsys := fstest.MapFS{
		"models/box.bin": {Data: []byte("geometry")},
	}
	f := NewFS(fsys)

	done := make(chan Result, 2)
	f.Fetch(context.Background(), "models/box.bin", func(r Result) { done <- r })
	f.Fetch(context.Background(), "models/missing.bin", func(r Result) { done <- r })

	got := map[string]Result{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-done:
			got[r.URI] = r
		case <-time.After(2 * time.Second):
			t.Fatal("fetch did not complete")
		}
	}
	if string(got["models/box.bin"].Data) != "geometry" {
		t.Errorf("box.bin: %+v", got["models/box.bin"])
	}
	if !errors.Is(got["models/missing.bin"].Err, ErrNotFound) {
		t.Errorf("missing.bin: want ErrNotFound, got %v", got["models/missing.bin"].Err)
	}
}

func TestFSFetchCancelled(t *testing.T) {
	f := NewFS(fstest.MapFS{"a": {Data: []byte("x")}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan Result, 1)
	f.Fetch(ctx, "a", func(r Result) { done <- r })
	select {
	case r := <-done:
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("want context.Canceled, got %v", r.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not complete")
	}
}
