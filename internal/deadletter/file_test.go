package deadletter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"violet-sync/internal/deadletter"
)

func newStore(t *testing.T) (*deadletter.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dead_letter.jsonl")
	return deadletter.NewFileStore(path), path
}

func sampleEntry(chatID string) *deadletter.Entry {
	payload := json.RawMessage(fmt.Sprintf(`{"chat_id":%q,"agent_name":"Violet"}`, chatID))
	return deadletter.NewEntry(chatID, "003XX00000ABCDE", "a0FXX00000JOB01",
		"New Application", "qualified", "HTTP 503: unavailable", payload)
}

func TestFileStore_AppendReadAll(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Append(ctx, sampleEntry(fmt.Sprintf("chat_%d", i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := store.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Order preserved.
	for i, e := range entries {
		if want := fmt.Sprintf("chat_%d", i); e.ChatID != want {
			t.Errorf("entries[%d].ChatID = %q, want %q", i, e.ChatID, want)
		}
	}
	// Payload survives verbatim.
	if !strings.Contains(string(entries[0].ChatPayload), `"agent_name":"Violet"`) {
		t.Errorf("payload mangled: %s", entries[0].ChatPayload)
	}
	if entries[0].EntryID == "" || entries[0].Timestamp.IsZero() {
		t.Errorf("entry missing id or timestamp: %+v", entries[0])
	}
}

func TestFileStore_EmptyAndMissing(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	entries, err := store.ReadAll(ctx)
	if err != nil || len(entries) != 0 {
		t.Fatalf("ReadAll on missing file = (%v, %v), want empty", entries, err)
	}
	n, err := store.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Count on missing file = (%d, %v), want 0", n, err)
	}
	archive, n, err := store.Clear(ctx)
	if err != nil || archive != "" || n != 0 {
		t.Fatalf("Clear on missing file = (%q, %d, %v), want no-op", archive, n, err)
	}
}

func TestFileStore_MalformedLinesAreSkipped(t *testing.T) {
	store, path := newStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, sampleEntry("chat_ok_1")); err != nil {
		t.Fatal(err)
	}
	// Simulate a crash mid-write.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"entry_id":"torn`); err != nil {
		t.Fatal(err)
	}
	f.WriteString("\n")
	f.Close()
	if err := store.Append(ctx, sampleEntry("chat_ok_2")); err != nil {
		t.Fatal(err)
	}

	entries, err := store.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (torn line skipped)", len(entries))
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}
}

func TestFileStore_ClearArchivesAndResets(t *testing.T) {
	store, path := newStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, sampleEntry(fmt.Sprintf("chat_%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	archive, n, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 5 {
		t.Errorf("cleared %d, want 5", n)
	}
	if !strings.Contains(archive, "_archive_") || !strings.HasSuffix(archive, ".jsonl") {
		t.Errorf("unexpected archive name %q", archive)
	}

	// The archive holds the data; the live store is fresh.
	if _, err := os.Stat(archive); err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("live file still present after clear")
	}
	count, err := store.Count(ctx)
	if err != nil || count != 0 {
		t.Errorf("Count after clear = (%d, %v), want 0", count, err)
	}

	// Appends after clear start a new log.
	if err := store.Append(ctx, sampleEntry("chat_new")); err != nil {
		t.Fatal(err)
	}
	count, _ = store.Count(ctx)
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestFileStore_ConcurrentAppendAndClear(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	const writers = 8
	const perWriter = 20

	var wg sync.WaitGroup
	archives := make(chan string, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := store.Append(ctx, sampleEntry(fmt.Sprintf("chat_%d_%d", w, i))); err != nil {
					t.Errorf("Append: %v", err)
				}
				if i == perWriter/2 {
					if archive, _, err := store.Clear(ctx); err != nil {
						t.Errorf("Clear: %v", err)
					} else if archive != "" {
						archives <- archive
					}
				}
			}
		}(w)
	}
	wg.Wait()
	close(archives)

	// Every appended entry is either in an archive or in the live log.
	total := 0
	for archive := range archives {
		archived, err := deadletter.NewFileStore(archive).ReadAll(ctx)
		if err != nil {
			t.Fatalf("read archive %s: %v", archive, err)
		}
		total += len(archived)
	}
	live, err := store.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	total += len(live)

	if total != writers*perWriter {
		t.Fatalf("found %d entries across archives and live log, want %d", total, writers*perWriter)
	}
}
