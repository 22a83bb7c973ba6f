package main

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type mockBroadcaster struct {
	mu     sync.Mutex
	json   []Envelope
	binary [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if env, ok := msg.(Envelope); ok {
		m.json = append(m.json, env)
	}
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

func (m *mockBroadcaster) ofType(t string) []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Envelope
	for _, e := range m.json {
		if e.T == t {
			out = append(out, e)
		}
	}
	return out
}

func singleGoblinConfig() *Config {
	cfg := DefaultConfig()
	cfg.Arena.Goblins = 1
	cfg.Arena.Necromancers = 0
	return cfg
}

func TestNewArenaSpawnsFirstWave(t *testing.T) {
	cfg := DefaultConfig()
	a := NewArena(cfg, 1, nil)

	s := a.Snapshot()
	require.Len(t, s.Characters, 1+cfg.Arena.Goblins+cfg.Arena.Necromancers)
	assert.Equal(t, string(KindPlayer), s.Characters[0].Kind)
	assert.Equal(t, 0, s.Level)
	assert.Equal(t, 1.0, s.Multiplier)

	for _, e := range a.enemies {
		if e.Kind == KindNecromancer {
			require.NotNil(t, e.Attack)
		}
	}
}

func TestArenaNecromancerUsesBuiltCompound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arena.Goblins = 0
	cfg.Arena.Necromancers = 12
	a := NewArena(cfg, 3, nil)

	require.Len(t, a.enemies, 12)
	for _, e := range a.enemies {
		c := e.Attack
		require.NotNil(t, c)
		assert.GreaterOrEqual(t, c.AttackSize(), 0)
		assert.Less(t, c.AttackSize(), SeedCountMax)
		assert.GreaterOrEqual(t, c.BaseDamage(), SeedDamageMin)
		assert.Less(t, c.BaseDamage(), SeedDamageMax)
		assert.GreaterOrEqual(t, c.BaseSpeed(), SeedSpeedMin)
		assert.Less(t, c.BaseSpeed(), SeedSpeedMax)
		kind := c.Movement().Describe().Kind
		assert.Contains(t, []string{MoveZigZag, MoveAccelerate}, kind)
		for _, tmpl := range c.Templates() {
			assert.Equal(t, cfg.Generation.Arc, tmpl.Arc())
		}
	}
}

func TestArenaNecromancerRandomSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arena.Goblins = 0
	cfg.Arena.NecromancerAttack = AttackSourceRandom
	a := NewArena(cfg, 3, nil)

	require.Len(t, a.enemies, 1)
	assert.Equal(t, RandomAttackCount, a.enemies[0].Attack.AttackSize())
}

func TestArenaPlayerStaysOnGround(t *testing.T) {
	a := NewArena(singleGoblinConfig(), 1, nil)
	for i := 0; i < 120; i++ {
		a.Update()
	}
	assert.InDelta(t, characterHalfSize.Y, a.player.Position().Y, 1e-6)
	assert.True(t, a.player.IsGrounded())
}

func TestArenaPilotInput(t *testing.T) {
	a := NewArena(singleGoblinConfig(), 1, nil)
	a.HandleInput(ClientInput{Move: 5, Fire: true})
	assert.Equal(t, 1.0, a.input.Move, "move is clamped")

	a.Update()
	var mine int
	for _, p := range a.attacks.Projectiles() {
		if p.Side == SidePlayer {
			mine++
		}
	}
	assert.Equal(t, 1, mine)
	assert.True(t, a.player.Attacking)

	// The fire cooldown holds the next dagger back
	a.Update()
	mine = 0
	for _, p := range a.attacks.Projectiles() {
		if p.Side == SidePlayer {
			mine++
		}
	}
	assert.Equal(t, 1, mine)

	for i := 0; i < 30; i++ {
		a.Update()
	}
	assert.Greater(t, a.player.Position().X, 1.0)
}

func TestArenaBroadcastsStateFrames(t *testing.T) {
	cfg := singleGoblinConfig()
	a := NewArena(cfg, 1, nil)
	b := &mockBroadcaster{}
	a.AddClient(b)

	every := cfg.Arena.TickRate / cfg.Arena.BroadcastRate
	for i := 0; i < every*2; i++ {
		a.Update()
	}
	require.Len(t, b.binary, 2)

	var s ArenaState
	require.NoError(t, msgpack.Unmarshal(b.binary[1], &s))
	assert.Equal(t, uint64(every*2), s.Tick)
	assert.Len(t, s.Characters, 2)

	a.RemoveClient(b)
	for i := 0; i < every; i++ {
		a.Update()
	}
	assert.Len(t, b.binary, 2)
}

func TestArenaKillSpawnsNextWave(t *testing.T) {
	a := NewArena(singleGoblinConfig(), 1, nil)
	b := &mockBroadcaster{}
	a.AddClient(b)

	require.Len(t, a.enemies, 1)
	goblin := a.enemies[0]
	goblin.HP = 1
	gp := goblin.Position()
	a.attacks.Spawn(Vec2{gp.X - 0.6, gp.Y}, 1, SidePlayer, PlayerThrowingDagger)

	a.resolveContacts()
	a.removeDead()
	assert.Empty(t, a.enemies)
	assert.Equal(t, 0, a.attacks.Len(), "the dagger is consumed by the hit")
	assert.False(t, a.world.Exists(goblin.Body))

	kills := b.ofType(MsgKill)
	require.Len(t, kills, 1)
	assert.Equal(t, goblin.ID, kills[0].Data.(KillMsg).VictimID)

	a.Update()
	assert.Equal(t, 2, a.wave)
	assert.Len(t, a.enemies, 1)
}

func TestArenaFriendlyFireIgnored(t *testing.T) {
	a := NewArena(singleGoblinConfig(), 1, nil)
	goblin := a.enemies[0]
	gp := goblin.Position()
	a.attacks.Spawn(Vec2{gp.X - 0.5, gp.Y}, 1, SideEnemy, GoblinThrowingDagger)

	a.resolveContacts()
	assert.Equal(t, goblin.MaxHP, goblin.HP)
	assert.Equal(t, 1, a.attacks.Len())
}

func TestArenaPlayerDeathResets(t *testing.T) {
	db := openTestDB(t)
	events := NewAnalytics(db)
	a := NewArena(singleGoblinConfig(), 1, events)

	oldID := a.PlayerID()
	a.player.HP = 1
	a.attacks.Spawn(Vec2{-0.5, characterHalfSize.Y}, 1, SideEnemy, GoblinThrowingDagger)
	a.Update()

	assert.NotEqual(t, oldID, a.PlayerID())
	assert.Equal(t, a.cfg.Arena.MaxHP[KindPlayer], a.player.HP)
	assert.Equal(t, 1, a.wave)

	events.Stop()
	downs, err := events.CountByType(EvtPlayerDown)
	require.NoError(t, err)
	assert.Equal(t, 1, downs)
}

func TestArenaDifficultyRamp(t *testing.T) {
	cfg := singleGoblinConfig()
	cfg.Difficulty.Interval = 0.05
	cfg.Difficulty.MaxLevel = 2
	a := NewArena(cfg, 1, nil)
	b := &mockBroadcaster{}
	a.AddClient(b)

	for i := 0; i < 12; i++ {
		a.Update()
	}
	assert.Equal(t, 2, a.Snapshot().Level)
	assert.InDelta(t, 1.2, a.attacks.Multiplier(), 1e-9)

	levels := b.ofType(MsgLevel)
	require.Len(t, levels, 2)
	msg, ok := levels[1].Data.(LevelMsg)
	require.True(t, ok)
	assert.Equal(t, 2, msg.Level)
	assert.InDelta(t, 1.2, msg.Multiplier, 1e-9)
}

func TestArenaSameSeedSameNecromancer(t *testing.T) {
	kindOf := func() string {
		a := NewArena(DefaultConfig(), 99, nil)
		for _, e := range a.enemies {
			if e.Kind == KindNecromancer {
				return e.Attack.Movement().Describe().Kind
			}
		}
		return ""
	}
	assert.Equal(t, kindOf(), kindOf())
}

func TestArenaRunStop(t *testing.T) {
	a := NewArena(singleGoblinConfig(), 1, nil)
	done := make(chan struct{})
	go func() {
		a.Run()
		close(done)
	}()
	for {
		a.mu.RLock()
		running := a.running
		a.mu.RUnlock()
		if running {
			break
		}
	}
	a.Stop()
	<-done
}

func TestArenaResetClearsProjectiles(t *testing.T) {
	a := NewArena(singleGoblinConfig(), 1, nil)
	old, oldWorld := a.attacks, a.world
	p := old.Spawn(Vec2{0, 5}, 1, SidePlayer, PlayerThrowingDagger)
	require.NotNil(t, p)

	a.Reset()
	assert.Equal(t, 0, old.Len())
	assert.False(t, oldWorld.Exists(p.Body))
	assert.Equal(t, 0, a.attacks.Len())
}
