package history_test

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/solacelabs/companiond/internal/core"
	"github.com/solacelabs/companiond/internal/history"
)

func testStore(t *testing.T, window int) *history.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := history.New(db, window)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return s
}

func testKey() core.CompanionKey {
	return core.CompanionKey{CompanionID: "aria", UserID: "user1", ModelName: "claude-sonnet-4"}
}

func TestReadYourWrites(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 30)
	key := testKey()

	if err := s.Append(ctx, key, core.RoleUser, "User", "What's your favorite color?"); err != nil {
		t.Fatalf("append: %v", err)
	}

	lines, err := s.ReadLatest(ctx, key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lines) == 0 {
		t.Fatal("expected at least one line")
	}
	if got := lines[len(lines)-1]; got != "User: What's your favorite color?" {
		t.Errorf("last line = %q, want the just-written turn", got)
	}
}

func TestSeedEmptyLog(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 30)
	key := testKey()

	seeded, err := s.Seed(ctx, key, "Hello, I'm Aria.", "\n\n")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !seeded {
		t.Fatal("expected seeding to run on an empty log")
	}

	lines, err := s.ReadLatest(ctx, key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lines) != 1 || lines[0] != "Hello, I'm Aria." {
		t.Errorf("lines = %q, want exactly the seed text", lines)
	}
}

func TestSeedIsNoOpOnNonEmptyLog(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 30)
	key := testKey()

	if err := s.Append(ctx, key, core.RoleUser, "User", "hi"); err != nil {
		t.Fatalf("append: %v", err)
	}

	seeded, err := s.Seed(ctx, key, "Hello, I'm Aria.", "\n\n")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded {
		t.Fatal("seed must not run once the log has entries")
	}

	// A second seed attempt after a successful one is also a no-op.
	s2 := testStore(t, 30)
	if _, err := s2.Seed(ctx, key, "first", "\n\n"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	seeded, err = s2.Seed(ctx, key, "second", "\n\n")
	if err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	if seeded {
		t.Fatal("re-seed must be a no-op")
	}
	lines, _ := s2.ReadLatest(ctx, key)
	if !reflect.DeepEqual(lines, []string{"first"}) {
		t.Errorf("lines = %q, want only the first seed", lines)
	}
}

func TestSeedConcurrentRunsOnce(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 30)
	key := testKey()

	const workers = 8
	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seeded, err := s.Seed(ctx, key, "Hello, I'm Aria.", "\n\n")
			if err != nil {
				t.Errorf("seed: %v", err)
				return
			}
			if seeded {
				ran.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := ran.Load(); got != 1 {
		t.Errorf("seed ran %d times across %d goroutines, want exactly once", got, workers)
	}
	lines, err := s.ReadLatest(ctx, key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lines) != 1 || lines[0] != "Hello, I'm Aria." {
		t.Errorf("lines = %q, want exactly one seed entry", lines)
	}
}

func TestSeedSplitsOnSeparator(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 30)
	key := testKey()

	if _, err := s.Seed(ctx, key, "Aria: Hi there.\n\nUser: Hey!\n\nAria: How was your day?", "\n\n"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	lines, err := s.ReadLatest(ctx, key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"Aria: Hi there.", "User: Hey!", "Aria: How was your day?"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}

func TestReadLatestWindowOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 3)
	key := testKey()

	for i := 1; i <= 5; i++ {
		if err := s.Append(ctx, key, core.RoleUser, "User", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	lines, err := s.ReadLatest(ctx, key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"User: message 3", "User: message 4", "User: message 5"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %q, want trailing window oldest-first %q", lines, want)
	}
}

func TestRereadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 30)
	key := testKey()

	s.Append(ctx, key, core.RoleUser, "User", "one")
	s.Append(ctx, key, core.RoleAssistant, "Aria", "two")

	first, err := s.ReadLatest(ctx, key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	second, err := s.ReadLatest(ctx, key)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-read differs: %q vs %q", first, second)
	}
}

func TestKeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 30)

	keyA := testKey()
	keyB := keyA
	keyB.UserID = "user2"

	s.Append(ctx, keyA, core.RoleUser, "User", "for A")
	s.Append(ctx, keyB, core.RoleUser, "User", "for B")

	linesA, _ := s.ReadLatest(ctx, keyA)
	if !reflect.DeepEqual(linesA, []string{"User: for A"}) {
		t.Errorf("key A sees %q", linesA)
	}
	linesB, _ := s.ReadLatest(ctx, keyB)
	if !reflect.DeepEqual(linesB, []string{"User: for B"}) {
		t.Errorf("key B sees %q", linesB)
	}
}

func TestReadMessagesRoles(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 30)
	key := testKey()

	s.Append(ctx, key, core.RoleUser, "User", "hello")
	s.Append(ctx, key, core.RoleAssistant, "Aria", "hi!")

	turns, err := s.ReadMessages(ctx, key, 10)
	if err != nil {
		t.Fatalf("read messages: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Role != core.RoleUser || turns[1].Role != core.RoleAssistant {
		t.Errorf("roles = %s, %s; want user, assistant", turns[0].Role, turns[1].Role)
	}
	if turns[1].Line() != "Aria: hi!" {
		t.Errorf("assistant line = %q", turns[1].Line())
	}
}
