package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Meta
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

type gadget struct {
	Meta
	Label string `json:"label"`
}

func newWidgetStore(t *testing.T) (*Store, *Collection[widget, *widget]) {
	t.Helper()
	st := New()
	return st, Register[widget](st, "widgets")
}

func TestAddAssignsHighestIDPlusOne(t *testing.T) {
	st, widgets := newWidgetStore(t)
	ctx := context.Background()

	require.NoError(t, st.WithTx(ctx, func(context.Context) error {
		first := widgets.Add(widget{Name: "a"})
		second := widgets.Add(widget{Name: "b"})
		require.Equal(t, int64(1), first.ID)
		require.Equal(t, int64(2), second.ID)
		require.Equal(t, int64(1), second.Version)
		require.True(t, widgets.Delete(first.ID))
		third := widgets.Add(widget{Name: "c"})
		require.Equal(t, int64(3), third.ID)
		return nil
	}))

	require.NoError(t, st.WithTx(ctx, func(context.Context) error {
		require.True(t, widgets.Delete(3))
		next := widgets.Add(widget{Name: "d"})
		require.Equal(t, int64(3), next.ID)
		return nil
	}))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st, widgets := newWidgetStore(t)
	ctx := context.Background()
	require.NoError(t, st.WithTx(ctx, func(context.Context) error {
		widgets.Add(widget{Name: "kept", Tags: []string{"x"}})
		return nil
	}))

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(context.Context) error {
		_, err := widgets.Update(1, 0, func(w *widget) error {
			w.Name = "changed"
			w.Tags[0] = "mutated in place"
			return nil
		})
		require.NoError(t, err)
		widgets.Add(widget{Name: "dropped"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, st.Read(ctx, func() error {
		require.Equal(t, 1, widgets.Len())
		got, ok := widgets.Find(1)
		require.True(t, ok)
		require.Equal(t, "kept", got.Name)
		require.Equal(t, []string{"x"}, got.Tags)
		require.Equal(t, int64(1), got.Version)
		return nil
	}))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	st, widgets := newWidgetStore(t)
	ctx := context.Background()

	require.Panics(t, func() {
		_ = st.WithTx(ctx, func(context.Context) error {
			widgets.Add(widget{Name: "half"})
			panic("unexpected")
		})
	})
	require.True(t, st.Empty(ctx))
	require.NoError(t, st.WithTx(ctx, func(context.Context) error { return nil }))
}

func TestUpdateChecksVersion(t *testing.T) {
	st, widgets := newWidgetStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(context.Context) error {
		widgets.Add(widget{Name: "a"})
		updated, err := widgets.Update(1, 1, func(w *widget) error {
			w.Name = "b"
			w.Version = 99
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, int64(2), updated.Version)

		_, err = widgets.Update(1, 1, func(w *widget) error { return nil })
		require.ErrorIs(t, err, ErrVersionConflict)

		_, err = widgets.Update(42, 0, func(w *widget) error { return nil })
		require.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

type crate struct {
	Meta
	Items  []widget        `json:"items"`
	Attrs  map[string]any  `json:"attrs"`
	Price  decimal.Decimal `json:"price"`
	Parent *widget         `json:"parent"`
	Packed time.Time       `json:"packed"`
	Empty  []string        `json:"empty"`
}

func TestReadsReturnDetachedCopies(t *testing.T) {
	st, widgets := newWidgetStore(t)
	ctx := context.Background()
	require.NoError(t, st.WithTx(ctx, func(context.Context) error {
		widgets.Add(widget{Name: "a", Tags: []string{"red", "blue"}})
		return nil
	}))

	var listed []widget
	require.NoError(t, st.Read(ctx, func() error {
		listed = widgets.List()
		return nil
	}))
	listed[0].Tags[0] = "changed"

	require.NoError(t, st.Read(ctx, func() error {
		found, ok := widgets.Find(1)
		require.True(t, ok)
		require.Equal(t, []string{"red", "blue"}, found.Tags)
		found.Tags[1] = "changed"

		filtered := widgets.Filter(func(widget) bool { return true })
		require.Equal(t, []string{"red", "blue"}, filtered[0].Tags)
		filtered[0].Tags[0] = "changed"

		byName, ok := widgets.FindBy(func(w widget) bool { return w.Name == "a" })
		require.True(t, ok)
		require.Equal(t, []string{"red", "blue"}, byName.Tags)
		return nil
	}))
}

func TestAddAndUpdateDetachFromCaller(t *testing.T) {
	st := New()
	crates := Register[crate](st, "crates")
	ctx := context.Background()
	packed := time.Date(2024, 1, 18, 15, 30, 0, 0, time.UTC)
	input := crate{
		Items:  []widget{{Name: "bolt", Tags: []string{"m8"}}},
		Attrs:  map[string]any{"lot": "L1", "qty": 4},
		Price:  decimal.RequireFromString("209500.25"),
		Parent: &widget{Name: "pallet"},
		Packed: packed,
		Empty:  []string{},
	}

	require.NoError(t, st.WithTx(ctx, func(context.Context) error {
		crates.Add(input)
		return nil
	}))
	input.Items[0].Tags[0] = "changed"
	input.Attrs["lot"] = "changed"
	input.Parent.Name = "changed"

	require.NoError(t, st.WithTx(ctx, func(context.Context) error {
		_, err := crates.Update(1, 1, func(c *crate) error {
			c.Items[0].Name = "nut"
			c.Attrs["qty"] = 5
			return errors.New("abort")
		})
		require.Error(t, err)
		return nil
	}))

	require.NoError(t, st.Read(ctx, func() error {
		got, ok := crates.Find(1)
		require.True(t, ok)
		require.Equal(t, "bolt", got.Items[0].Name)
		require.Equal(t, []string{"m8"}, got.Items[0].Tags)
		require.Equal(t, map[string]any{"lot": "L1", "qty": 4}, got.Attrs)
		require.Equal(t, "pallet", got.Parent.Name)
		require.True(t, got.Price.Equal(decimal.RequireFromString("209500.25")))
		require.Equal(t, "209500.25", got.Price.String())
		require.True(t, got.Packed.Equal(packed))
		require.NotNil(t, got.Empty)
		require.Empty(t, got.Empty)
		return nil
	}))
}

func TestNestedWithTxJoinsOuter(t *testing.T) {
	st, widgets := newWidgetStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(ctx context.Context) error {
		require.True(t, st.InTx(ctx))
		require.NoError(t, st.WithTx(ctx, func(context.Context) error {
			widgets.Add(widget{Name: "inner"})
			return nil
		}))
		return st.Read(ctx, func() error {
			require.Equal(t, 1, widgets.Len())
			return errors.New("abort outer")
		})
	})
	require.Error(t, err)
	require.True(t, st.Empty(ctx))
}

func TestCommitHooksSeeCommittedState(t *testing.T) {
	st, widgets := newWidgetStore(t)
	ctx := context.Background()
	var seen []Snapshot
	st.OnCommit(func(_ context.Context, snap Snapshot) {
		seen = append(seen, snap)
	})

	require.NoError(t, st.WithTx(ctx, func(context.Context) error {
		widgets.Add(widget{Name: "a"})
		return nil
	}))
	require.Error(t, st.WithTx(ctx, func(context.Context) error {
		return errors.New("nope")
	}))

	require.Len(t, seen, 1)
	require.Equal(t, int64(1), seen[0].Seq)
	require.Contains(t, string(seen[0].Tables["widgets"]), `"name":"a"`)
}

func TestSnapshotRestore(t *testing.T) {
	st, widgets := newWidgetStore(t)
	gadgets := Register[gadget](st, "gadgets")
	ctx := context.Background()

	require.NoError(t, st.WithTx(ctx, func(context.Context) error {
		widgets.Add(widget{Name: "a", Tags: []string{"t"}})
		gadgets.Add(gadget{Label: "g"})
		return nil
	}))
	snap, err := st.Snapshot(ctx)
	require.NoError(t, err)

	other := New()
	otherWidgets := Register[widget](other, "widgets")
	otherGadgets := Register[gadget](other, "gadgets")
	require.NoError(t, other.Restore(ctx, snap))

	require.NoError(t, other.Read(ctx, func() error {
		w, ok := otherWidgets.Find(1)
		require.True(t, ok)
		require.Equal(t, []string{"t"}, w.Tags)
		require.Equal(t, 1, otherGadgets.Len())
		return nil
	}))
	require.Equal(t, []string{"gadgets", "widgets"}, other.Tables())
}

func TestRegisterReturnsExistingCollection(t *testing.T) {
	st, widgets := newWidgetStore(t)
	require.Same(t, widgets, Register[widget](st, "widgets"))
	require.Panics(t, func() {
		Register[gadget](st, "widgets")
	})
}

func TestPGSnapshotterOfferKeepsNewest(t *testing.T) {
	p := NewPGSnapshotter(nil, nil, 0)
	ctx := context.Background()

	p.Offer(ctx, Snapshot{Seq: 2, TakenAt: time.Now()})
	p.Offer(ctx, Snapshot{Seq: 1})
	p.Offer(ctx, Snapshot{Seq: 3})

	snap, ok := p.take()
	require.True(t, ok)
	require.Equal(t, int64(3), snap.Seq)
	_, ok = p.take()
	require.False(t, ok)
	require.Len(t, p.signal, 1)
}
