package world

import (
	"context"
	"testing"
	"time"

	"github.com/hellasmmo/server/audit"
	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/entity"
	"github.com/hellasmmo/server/game/item"
	"github.com/hellasmmo/server/game/spell"
	"github.com/hellasmmo/server/game/stats"
	"github.com/hellasmmo/server/game/talent"
	"github.com/hellasmmo/server/scheduler"
	"github.com/hellasmmo/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeContent struct {
	classes map[string]*talent.ClassType
	spells  map[string]*spell.Spell
}

func (f fakeContent) Class(id string) (*talent.ClassType, bool) { c, ok := f.classes[id]; return c, ok }
func (f fakeContent) Spell(id string) (*spell.Spell, bool)      { s, ok := f.spells[id]; return s, ok }

type auditLog struct{ entries []audit.AuditEntry }

func (a *auditLog) Log(e audit.AuditEntry) { a.entries = append(a.entries, e) }

func newRosterFixture(t *testing.T) (*Roster, *simFixture, *talent.Store, *auditLog) {
	t.Helper()
	r, f, store, aud := newIdleRosterFixture(t)
	f.drive(t)
	return r, f, store, aud
}

// newIdleRosterFixture leaves ticking to the test.
func newIdleRosterFixture(t *testing.T) (*Roster, *simFixture, *talent.Store, *auditLog) {
	t.Helper()
	ct := talent.NewClassType("mage", "Mage")
	ct.AddStats("Focus", "arcane", stats.Modifier{MaxEnergy: 10}, talent.Tier{})
	ct.AddSpell("Nova", "arcane", "nova", talent.Tier{RequiredPointsInTree: 1})
	ct.AddStats("Sigil", "arcane", stats.Modifier{MaxHealth: 5}, talent.Tier{Cost: talent.ItemCost{ItemID: "rune", Quantity: 1}})
	ct.FreeSpell = "bolt"
	content := fakeContent{
		classes: map[string]*talent.ClassType{"mage": ct},
		spells: map[string]*spell.Spell{
			"bolt": bolt,
			"nova": {ID: "nova", Targets: spell.Targets{Enemy: true}, Range: 100,
				Effect: &spell.Effect{Kind: spell.DirectDamage, Args: spell.Args{Magnitude: 5}}},
		},
	}
	f := newSimFixture(t, nil)
	db := testutil.SetupTestDB(t)
	store := talent.NewStore(db, zap.NewNop())
	f.items = item.NewStore(db, zap.NewNop())
	aud := &auditLog{}
	r := NewRoster(f.sim, content, store, f.items, nil, RosterOptions{Base: userBase, Spawn: combat.Point{X: 5, Y: 5}}, aud, zap.NewNop())
	return r, f, store, aud
}

func TestRoster_JoinTeachesFreeSpell(t *testing.T) {
	r, f, _, _ := newRosterFixture(t)
	ctx := context.Background()

	require.NoError(t, r.Join(ctx, "alice", "mage"))
	assert.ErrorIs(t, r.Join(ctx, "alice", "mage"), ErrEntityExists)
	assert.ErrorIs(t, r.Join(ctx, "bob", "bard"), ErrUnknownClass)

	spells, err := r.KnownSpells(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bolt"}, spells)

	snap, ok := f.sim.Snapshot("alice")
	require.True(t, ok)
	assert.Equal(t, combat.Point{X: 5, Y: 5}, snap.Location)
	assert.Equal(t, 1, snap.Level)
}

func TestRoster_TakeTalentAudited(t *testing.T) {
	r, f, _, aud := newRosterFixture(t)
	ctx := audit.WithTraceID(context.Background(), "t-1")
	require.NoError(t, r.Join(ctx, "alice", "mage"))

	assert.ErrorIs(t, r.TakeTalent(ctx, "alice", "Nova"), talent.ErrTierLocked)
	require.NoError(t, r.TakeTalent(ctx, "alice", "Focus"))
	require.NoError(t, r.TakeTalent(ctx, "alice", "Nova"))
	// Level 1 allows two points.
	assert.ErrorIs(t, r.TakeTalent(ctx, "alice", "Focus"), talent.ErrNoTalentPoints)
	assert.ErrorIs(t, r.TakeTalent(ctx, "alice", "Dance"), talent.ErrUnknownTalent)
	assert.ErrorIs(t, r.TakeTalent(ctx, "nobody", "Focus"), ErrUnknownEntity)

	snap, _ := f.sim.Snapshot("alice")
	assert.Equal(t, 60, snap.MaxEnergy)

	require.Len(t, aud.entries, 6)
	assert.Equal(t, audit.ActionTalentTake, aud.entries[0].Action)
	assert.Equal(t, "t-1", aud.entries[0].TraceID)
	assert.NotEmpty(t, aud.entries[0].Error)
	assert.Empty(t, aud.entries[1].Error)

	spells, _ := r.KnownSpells(ctx, "alice")
	assert.Equal(t, []string{"bolt", "nova"}, spells)
}

func TestRoster_LeaveSavesAndJoinRestores(t *testing.T) {
	r, f, _, _ := newRosterFixture(t)
	ctx := context.Background()
	require.NoError(t, r.Join(ctx, "alice", "mage"))
	require.NoError(t, r.TakeTalent(ctx, "alice", "Focus"))

	require.NoError(t, r.Leave(ctx, "alice"))
	assert.Equal(t, 0, f.sim.Len())
	assert.ErrorIs(t, r.Leave(ctx, "alice"), ErrUnknownEntity)

	require.NoError(t, r.Join(ctx, "alice", "mage"))
	snap, _ := f.sim.Snapshot("alice")
	assert.Equal(t, 60, snap.MaxEnergy)
}

func TestRoster_LeaveRejectsNPC(t *testing.T) {
	r, f, _, _ := newRosterFixture(t)
	var addErr error
	require.NoError(t, f.sim.Do(context.Background(), func(tx *Tx) {
		addErr = tx.Add(entity.NewNPC("wolf", 1, userBase, 0))
	}))
	require.NoError(t, addErr)
	assert.ErrorIs(t, r.Leave(context.Background(), "wolf"), ErrNotAUser)
}

func TestRoster_CastRequiresKnownSpell(t *testing.T) {
	r, f, _, _ := newRosterFixture(t)
	ctx := context.Background()
	require.NoError(t, r.Join(ctx, "alice", "mage"))
	wolf := entity.NewNPC("wolf", 1, stats.Block{MaxHealth: 500}, 0)
	wolf.TeleportTo(combat.Point{X: 20, Y: 5})
	var addErr error
	require.NoError(t, f.sim.Do(ctx, func(tx *Tx) { addErr = tx.Add(wolf) }))
	require.NoError(t, addErr)

	res, err := r.Cast(ctx, "bolt", "alice", "wolf")
	require.NoError(t, err)
	assert.True(t, res.Landed())

	_, err = r.Cast(ctx, "nova", "alice", "wolf")
	assert.ErrorIs(t, err, ErrSpellUnknown)
	_, err = r.Cast(ctx, "meteor", "alice", "wolf")
	assert.ErrorIs(t, err, ErrUnknownSpell)
	_, err = r.Cast(ctx, "bolt", "alice", "ghost")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestRoster_SaveAll(t *testing.T) {
	r, _, store, _ := newRosterFixture(t)
	ctx := context.Background()
	require.NoError(t, r.Join(ctx, "alice", "mage"))
	require.NoError(t, r.TakeTalent(ctx, "alice", "Focus"))
	require.NoError(t, r.SaveAll(ctx))

	ct := talent.NewClassType("mage", "Mage")
	focus := ct.AddStats("Focus", "arcane", stats.Modifier{}, talent.Tier{})
	c := talent.NewClass(ct, func() int { return 1 }, zap.NewNop())
	require.NoError(t, store.Load(ctx, "alice", c))
	assert.Equal(t, 1, c.Rank(focus))
	assert.Equal(t, []string{"bolt"}, c.TaughtSpells())
}

// tickUntil ticks the simulation by hand until fn returns.
func (f *simFixture) tickUntil(fn func() error) error {
	errc := make(chan error, 1)
	go func() { errc <- fn() }()
	for {
		select {
		case err := <-errc:
			return err
		default:
			f.sim.Tick(0)
			time.Sleep(time.Millisecond)
		}
	}
}

func focusRank(t *testing.T, store *talent.Store, name string) int {
	t.Helper()
	ct := talent.NewClassType("mage", "Mage")
	focus := ct.AddStats("Focus", "arcane", stats.Modifier{}, talent.Tier{})
	c := talent.NewClass(ct, func() int { return 1 }, zap.NewNop())
	require.NoError(t, store.Load(context.Background(), name, c))
	return c.Rank(focus)
}

func TestRoster_LeaveWithDoneContextKeepsUser(t *testing.T) {
	r, f, store, _ := newRosterFixture(t)
	require.NoError(t, r.Join(context.Background(), "alice", "mage"))
	require.NoError(t, r.TakeTalent(context.Background(), "alice", "Focus"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Leave(ctx, "alice"), context.Canceled)

	_, ok := f.sim.Snapshot("alice")
	assert.True(t, ok)
	assert.Equal(t, 0, focusRank(t, store, "alice"))
}

func TestRoster_LeaveSavesAfterWaiterGivesUp(t *testing.T) {
	r, f, store, _ := newIdleRosterFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tickUntil(func() error { return r.Join(ctx, "alice", "mage") }))
	require.NoError(t, f.tickUntil(func() error { return r.TakeTalent(ctx, "alice", "Focus") }))

	// Nothing ticks, so the removal is still queued when the deadline passes.
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Leave(short, "alice"), context.DeadlineExceeded)

	f.sim.Tick(0)
	assert.Equal(t, 0, f.sim.Len())
	assert.Eventually(t, func() bool {
		return focusRank(t, store, "alice") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRoster_SaveAllAfterWorldStops(t *testing.T) {
	r, f, store, _ := newIdleRosterFixture(t)
	sched := scheduler.New(zap.NewNop())
	sched.AddTicker("world_tick", time.Millisecond, f.sim.Tick)
	ctx := context.Background()
	require.NoError(t, r.Join(ctx, "alice", "mage"))
	require.NoError(t, r.TakeTalent(ctx, "alice", "Focus"))

	sched.Stop()
	f.sim.Stop()

	saveCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	require.NoError(t, r.SaveAll(saveCtx))
	assert.Equal(t, 1, focusRank(t, store, "alice"))
}

func TestRoster_ItemsPayForTalentsAndPersist(t *testing.T) {
	r, f, _, aud := newRosterFixture(t)
	ctx := context.Background()
	require.NoError(t, r.Join(ctx, "alice", "mage"))

	assert.ErrorIs(t, r.TakeTalent(ctx, "alice", "Sigil"), talent.ErrCannotAfford)
	assert.ErrorIs(t, r.GrantItems(ctx, "ghost", "rune", 1), ErrUnknownEntity)
	require.NoError(t, r.GrantItems(ctx, "alice", "rune", 3))
	require.NoError(t, r.TakeTalent(ctx, "alice", "Sigil"))

	snap, _ := f.sim.Snapshot("alice")
	assert.Equal(t, 105, snap.MaxHealth)
	items, err := r.Items(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []item.Stack{{ItemID: "rune", Qty: 2}}, items)
	assert.Equal(t, audit.ActionItemGrant, aud.entries[2].Action)

	require.NoError(t, r.Leave(ctx, "alice"))
	bag, err := f.items.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, bag.Qty("rune"))

	require.NoError(t, r.Join(ctx, "alice", "mage"))
	items, err = r.Items(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []item.Stack{{ItemID: "rune", Qty: 2}}, items)
}
