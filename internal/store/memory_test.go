package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/robalobadob/rps/internal/game"
	"github.com/robalobadob/rps/internal/store"
)

type forcedRNG struct{ idx int }

func (r forcedRNG) IntN(n int) int { return r.idx % n }

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	s, err := st.Create(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.ID) != 22 {
		t.Errorf("expected 22-char id, got %q", s.ID)
	}
	if s.State != game.Reset() {
		t.Errorf("expected fresh state, got %+v", s.State)
	}

	got, err := st.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("got id %q, want %q", got.ID, s.ID)
	}
	if st.Len() != 1 {
		t.Errorf("expected 1 session, got %d", st.Len())
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := store.NewMemoryStore().Get(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_ReplacesState(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	s, _ := st.Create(ctx)
	e := game.NewEngine(forcedRNG{idx: 2}) // scissors

	updated, err := st.Update(ctx, s.ID, func(cur game.State) (game.State, error) {
		return e.PlayRound(cur, game.Rock)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.State.PlayerScore != 1 {
		t.Errorf("expected player score 1, got %d", updated.State.PlayerScore)
	}

	got, _ := st.Get(ctx, s.ID)
	if got.State.PlayerScore != 1 || got.State.Rounds != 1 {
		t.Errorf("stored state not replaced: %+v", got.State)
	}
}

func TestUpdate_ErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	s, _ := st.Create(ctx)
	e := game.NewEngine(nil)

	_, err := st.Update(ctx, s.ID, func(cur game.State) (game.State, error) {
		return e.PlayRound(cur, game.Choice(9))
	})
	if !errors.Is(err, game.ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
	got, _ := st.Get(ctx, s.ID)
	if got.State != game.Reset() {
		t.Errorf("state changed on failed update: %+v", got.State)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	_, err := store.NewMemoryStore().Update(context.Background(), "missing", func(cur game.State) (game.State, error) {
		return cur, nil
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_ConcurrentRoundsAreNotLost(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	s, _ := st.Create(ctx)
	e := game.NewEngine(nil)

	const rounds = 200
	var wg sync.WaitGroup
	for range rounds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Update(ctx, s.ID, func(cur game.State) (game.State, error) {
				return e.PlayRound(cur, game.Paper)
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := st.Get(ctx, s.ID)
	if got.State.Rounds != rounds {
		t.Errorf("expected %d rounds, got %d", rounds, got.State.Rounds)
	}
	if got.State.PlayerScore+got.State.ComputerScore > rounds {
		t.Errorf("scores exceed rounds: %+v", got.State)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	s, _ := st.Create(ctx)

	if err := st.Delete(ctx, s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := st.Get(ctx, s.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.Delete(ctx, s.ID); err != nil {
		t.Errorf("deleting twice should not fail: %v", err)
	}
}
