package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/pipescope/pkg/view"
)

func testState() view.State {
	return view.State{
		Mode:     "dag",
		Visible:  view.Visibility{Nodes: []string{"a", "b"}, Edges: []int{0}},
		Selected: "a",
		Focus:    &view.Focus{Node: "a", Direction: "downstream"},
	}
}

// runStoreTests exercises the Store contract against one backend.
func runStoreTests(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		sess := New("warehouse", testState(), time.Hour)
		if err := store.Set(ctx, sess); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := store.Get(ctx, sess.ID)
		if err != nil || got == nil {
			t.Fatalf("Get = %v, %v", got, err)
		}
		if got.Payload != "warehouse" || got.State.Selected != "a" || got.State.Focus.Direction != "downstream" {
			t.Errorf("Get = %+v", got)
		}
		if !got.State.Visible.Equal(sess.State.Visible) {
			t.Errorf("visibility = %+v", got.State.Visible)
		}
	})

	t.Run("missing", func(t *testing.T) {
		got, err := store.Get(ctx, New("", view.State{}, time.Hour).ID)
		if got != nil || err != nil {
			t.Errorf("Get(missing) = %v, %v", got, err)
		}
		got, err = store.Get(ctx, "../../etc/passwd")
		if got != nil || err != nil {
			t.Errorf("Get(bad id) = %v, %v", got, err)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		sess := New("", view.State{}, time.Hour)
		sess.ID = "not-a-uuid"
		if err := store.Set(ctx, sess); err != ErrInvalidID {
			t.Errorf("Set(bad id) error = %v, want ErrInvalidID", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		sess := New("", testState(), time.Hour)
		if err := store.Set(ctx, sess); err != nil {
			t.Fatal(err)
		}
		sess.ExpiresAt = time.Now().Add(-time.Minute)
		if err := store.Set(ctx, sess); err != nil {
			t.Fatal(err)
		}
		if got, _ := store.Get(ctx, sess.ID); got != nil {
			t.Error("expired session returned")
		}
		if err := store.Cleanup(ctx); err != nil {
			t.Errorf("Cleanup: %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		sess := New("", testState(), time.Hour)
		if err := store.Set(ctx, sess); err != nil {
			t.Fatal(err)
		}
		if err := store.Delete(ctx, sess.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if got, _ := store.Get(ctx, sess.ID); got != nil {
			t.Error("session survived Delete")
		}
		if err := store.Delete(ctx, sess.ID); err != nil {
			t.Errorf("Delete(missing): %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sess := New("", testState(), time.Hour)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}

	sess.State.Visible.Nodes[0] = "mutated"
	got, _ := store.Get(ctx, sess.ID)
	if got.State.Visible.Nodes[0] != "a" {
		t.Error("store shares state with caller")
	}
	got.State.Selected = "b"
	again, _ := store.Get(ctx, sess.ID)
	if again.State.Selected != "a" {
		t.Error("Get result shares state with store")
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	live := New("", testState(), time.Hour)
	dead := New("", testState(), -time.Minute)
	_ = store.Set(ctx, live)
	_ = store.Set(ctx, dead)

	if err := store.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d after Cleanup, want 1", store.Len())
	}
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runStoreTests(t, store)
}

func TestFileStoreCleanupRemovesExpired(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	dead := New("", testState(), -time.Minute)
	if err := store.Set(ctx, dead); err != nil {
		t.Fatal(err)
	}
	if err := store.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, dead.ID+".json")); !os.IsNotExist(err) {
		t.Error("expired session file not removed")
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client)
	runStoreTests(t, store)

	sess := New("", testState(), time.Minute)
	if err := store.Set(context.Background(), sess); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(redisKeyPrefix + sess.ID); ttl <= 0 || ttl > time.Minute {
		t.Errorf("redis TTL = %v, want (0, 1m]", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if got, _ := store.Get(context.Background(), sess.ID); got != nil {
		t.Error("session outlived redis TTL")
	}
}

func TestCLIStore(t *testing.T) {
	ctx := context.Background()
	c, err := NewCLIStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if st, err := c.Load(ctx, "payload.json"); st != nil || err != nil {
		t.Errorf("Load(empty) = %v, %v", st, err)
	}
	if err := c.Save(ctx, "payload.json", testState()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st, err := c.Load(ctx, "payload.json")
	if err != nil || st == nil || st.Selected != "a" {
		t.Fatalf("Load = %+v, %v", st, err)
	}
	if other, _ := c.Load(ctx, "other.json"); other != nil {
		t.Error("state leaked across payloads")
	}
	if err := c.Forget(ctx, "payload.json"); err != nil {
		t.Fatal(err)
	}
	if st, _ := c.Load(ctx, "payload.json"); st != nil {
		t.Error("state survived Forget")
	}
}

func TestResumeIDStable(t *testing.T) {
	if ResumeID("a.json") != ResumeID("a.json") {
		t.Error("ResumeID not stable")
	}
	if ResumeID("a.json") == ResumeID("b.json") {
		t.Error("ResumeID collides")
	}
	if err := ValidateID(ResumeID("a.json")); err != nil {
		t.Errorf("ResumeID not a valid id: %v", err)
	}
}

func TestSessionUpdate(t *testing.T) {
	sess := New("", view.State{Mode: "dag"}, time.Minute)
	before := sess.ExpiresAt
	time.Sleep(time.Millisecond)
	sess.Update(testState(), time.Hour)
	if !sess.ExpiresAt.After(before) || sess.State.Selected != "a" {
		t.Errorf("Update = %+v", sess)
	}
}
