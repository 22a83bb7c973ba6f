package main

import (
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	playerFireCooldown = 0.35 // seconds between player daggers
	groundHalfWidth    = 400.0
	groundThickness    = 1.0
	enemySpacing       = 5.0
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// SimClock is simulation time; it only advances with ticks
type SimClock struct {
	now time.Time
}

// NewSimClock starts a clock at the Unix epoch
func NewSimClock() *SimClock {
	return &SimClock{now: time.Unix(0, 0)}
}

func (c *SimClock) Now() time.Time { return c.now }

// Advance moves the clock forward by dt seconds
func (c *SimClock) Advance(dt float64) {
	c.now = c.now.Add(time.Duration(dt * float64(time.Second)))
}

// StateRenderer collects protocol state from draw calls
type StateRenderer struct {
	Characters  []CharacterState
	Projectiles []ProjectileState
}

func (r *StateRenderer) DrawProjectile(p *Projectile) {
	r.Projectiles = append(r.Projectiles, p.ToState())
}

func (r *StateRenderer) DrawCharacter(c *Character) {
	r.Characters = append(r.Characters, c.ToState())
}

// Arena is one live combat simulation: a player, enemy waves and their attacks
type Arena struct {
	mu         sync.RWMutex
	cfg        *Config
	seed       uint64
	rng        *rand.Rand
	world      *KinematicWorld
	clock      *SimClock
	attacks    *AttackManager
	difficulty *DifficultyManager
	attackTask *AttackTask
	pursue     *PursueTask
	patrol     *PatrolTask
	player     *Character
	enemies    []*Character
	brains     map[string]*EnemyBrain
	byBody     map[BodyID]*Character
	clients    map[Broadcaster]bool
	events     *Analytics
	input      ClientInput
	fireCD     float64
	wave       int
	tick       uint64
	running    bool
	stop       chan struct{}
}

// NewArena builds an arena with a ground strip, a player and the first enemy wave.
// events may be nil.
func NewArena(cfg *Config, seed uint64, events *Analytics) *Arena {
	a := &Arena{
		cfg:     cfg,
		seed:    seed,
		brains:  make(map[string]*EnemyBrain),
		byBody:  make(map[BodyID]*Character),
		clients: make(map[Broadcaster]bool),
		events:  events,
		stop:    make(chan struct{}),
	}
	a.reset()
	return a
}

func (a *Arena) reset() {
	if a.attacks != nil {
		a.attacks.Clear()
	}
	a.rng = newSeededRand(a.seed)
	a.world = NewKinematicWorld(a.cfg.Arena.Gravity)
	a.clock = NewSimClock()
	a.attacks = NewAttackManager(a.world, a.cfg.Attacks)
	a.difficulty = NewDifficultyManager(a.cfg.Difficulty)
	a.difficulty.Subscribe(a.attacks)
	a.difficulty.Subscribe(DifficultyObserverFunc(a.onLevel))

	cooldowns := make(map[CharacterKind]time.Duration, len(a.cfg.AI.Kinds))
	for kind, rc := range a.cfg.AI.Kinds {
		cooldowns[kind] = rc.Cooldown
	}
	a.attackTask = NewAttackTask(a.attacks, a.clock, cooldowns)
	a.pursue = &PursueTask{MinDistance: a.cfg.AI.MinPursueDistance}
	a.patrol = NewPatrolTask(a.cfg.AI.PatrolSwitch)

	a.world.AddPlatform(-groundHalfWidth, groundHalfWidth, 0, groundThickness)
	for i := 1; i <= 8; i++ {
		x := float64(i) * 12
		a.world.AddPlatform(x, x+4, 2.5, 0.5)
	}

	a.enemies = nil
	a.brains = make(map[string]*EnemyBrain)
	a.byBody = make(map[BodyID]*Character)
	a.player = NewCharacter(a.world, KindPlayer, Vec2{0, characterHalfSize.Y}, a.cfg, 1)
	a.byBody[a.player.Body] = a.player
	a.wave = 0
	a.fireCD = 0
	a.spawnWave()
}

func (a *Arena) onLevel(level int) {
	m := a.attacks.Multiplier()
	log.Printf("arena: difficulty level %d (multiplier %.2f)", level, m)
	a.broadcastMsg(Envelope{T: MsgLevel, Data: LevelMsg{Level: level, Multiplier: m}})
	if a.events != nil {
		a.events.Track(EvtLevelUp, "", level)
	}
}

func (a *Arena) spawnWave() {
	a.wave++
	m := a.attacks.Multiplier()
	x := a.player.Position().X + 2*enemySpacing
	spawn := func(kind CharacterKind) {
		e := NewCharacter(a.world, kind, Vec2{x, characterHalfSize.Y}, a.cfg, m)
		e.Facing = -1
		if kind == KindNecromancer {
			e.Attack = a.necromancerAttack()
		}
		agent := NewAgent(e, a.cfg.Ranges(kind))
		a.brains[e.ID] = NewEnemyBrain(agent, NewEnemyTree(a.attackTask, a.pursue, a.patrol), a.cfg.AI.TreeInterval)
		a.enemies = append(a.enemies, e)
		a.byBody[e.Body] = e
		x += enemySpacing
	}
	for i := 0; i < a.cfg.Arena.Goblins; i++ {
		spawn(KindGoblin)
	}
	for i := 0; i < a.cfg.Arena.Necromancers; i++ {
		spawn(KindNecromancer)
	}
	if a.events != nil {
		a.events.Track(EvtWave, "", a.wave)
	}
}

// necromancerAttack assembles a compound the same way the seed generation
// does, unless the random factory is configured
func (a *Arena) necromancerAttack() *CompoundAttack {
	if a.cfg.Arena.NecromancerAttack == AttackSourceRandom {
		return NewRandomAttack(a.rng)
	}
	b := NewCompoundAttackBuilder(a.rng)
	NewDirector(a.rng, a.cfg.Generation.Arc).ConstructPCGAttack(b)
	return b.Result()
}

// Run starts the simulation loop
func (a *Arena) Run() {
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.Arena.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Update()
		case <-a.stop:
			return
		}
	}
}

// Stop terminates the simulation loop
func (a *Arena) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		a.running = false
		close(a.stop)
	}
}

// Reset restarts the arena from its seed
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
}

// HandleInput stores the pilot's latest input
func (a *Arena) HandleInput(in ClientInput) {
	a.mu.Lock()
	defer a.mu.Unlock()
	in.Move = Clamp(in.Move, -1, 1)
	a.input = in
}

// AddClient subscribes a broadcaster to state frames
func (a *Arena) AddClient(b Broadcaster) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clients[b] = true
}

// RemoveClient unsubscribes a broadcaster
func (a *Arena) RemoveClient(b Broadcaster) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.clients, b)
}

// PlayerID returns the id of the controllable character
func (a *Arena) PlayerID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.player.ID
}

// Update runs one simulation tick
func (a *Arena) Update() {
	a.mu.Lock()
	defer a.mu.Unlock()

	dt := 1.0 / float64(a.cfg.Arena.TickRate)
	a.tick++
	a.clock.Advance(dt)
	a.difficulty.Update(dt)

	a.updatePlayer(dt)
	for _, e := range a.enemies {
		if b, ok := a.brains[e.ID]; ok && e.Alive {
			b.Update(dt, a.world, a.player)
		}
	}
	a.player.Integrate()
	for _, e := range a.enemies {
		e.Integrate()
	}

	viewX := a.player.Position().X
	a.attacks.Update(dt, viewX, a.cfg.Arena.ViewWidth)
	a.world.Step(dt)
	a.resolveContacts()
	a.removeDead()

	if !a.player.Alive {
		log.Printf("arena: player down at tick %d, wave %d", a.tick, a.wave)
		if a.events != nil {
			a.events.Track(EvtPlayerDown, a.player.ID, a.wave)
		}
		a.reset()
		return
	}
	if len(a.enemies) == 0 {
		a.spawnWave()
	}

	if a.tick%uint64(a.cfg.Arena.TickRate/a.cfg.Arena.BroadcastRate) == 0 {
		a.broadcastState()
	}
}

func (a *Arena) updatePlayer(dt float64) {
	p := a.player
	p.MoveDirection = a.input.Move
	p.Attacking = false
	if a.input.Jump {
		p.Jump()
		a.input.Jump = false
	}
	if a.fireCD > 0 {
		a.fireCD -= dt
	}
	if a.input.Fire && a.fireCD <= 0 {
		a.attacks.Spawn(p.Position(), p.Facing, SidePlayer, p.AttackKind())
		a.fireCD = playerFireCooldown
		p.Attacking = true
	}
}

// resolveContacts applies projectile hits; projectiles also break on platforms
func (a *Arena) resolveContacts() {
	for _, c := range a.world.Contacts() {
		a.hit(c.A, c.B)
		a.hit(c.B, c.A)
	}
	a.attacks.sweep()
}

func (a *Arena) hit(projBody, otherBody BodyID) {
	p, ok := a.attacks.ByBody(projBody)
	if !ok || p.Remove {
		return
	}
	if a.world.Category(otherBody)&CategoryPlatform != 0 {
		p.Remove = true
		return
	}
	target, ok := a.byBody[otherBody]
	if !ok || !target.Alive || target.Side() == p.Side {
		return
	}
	p.Remove = true
	if target.TakeDamage(p.Damage) {
		a.broadcastMsg(Envelope{T: MsgKill, Data: KillMsg{
			VictimID:   target.ID,
			VictimKind: string(target.Kind),
			Side:       int(target.Side()),
		}})
		if a.events != nil {
			a.events.Track(EvtKill, target.ID, string(target.Kind))
		}
	}
}

func (a *Arena) removeDead() {
	n := 0
	for _, e := range a.enemies {
		if e.Alive {
			a.enemies[n] = e
			n++
			continue
		}
		a.world.DestroyBody(e.Body)
		delete(a.byBody, e.Body)
		delete(a.brains, e.ID)
		a.attackTask.Forget(e.ID)
		a.patrol.Forget(e.ID)
	}
	a.enemies = a.enemies[:n]
}

// snapshot builds the protocol state (caller holds the lock)
func (a *Arena) snapshot() ArenaState {
	r := &StateRenderer{}
	r.DrawCharacter(a.player)
	for _, e := range a.enemies {
		r.DrawCharacter(e)
	}
	a.attacks.Render(r)
	return ArenaState{
		Characters:  r.Characters,
		Projectiles: r.Projectiles,
		Level:       a.difficulty.Level(),
		Multiplier:  a.attacks.Multiplier(),
		ViewX:       round1(a.player.Position().X),
		Tick:        a.tick,
	}
}

// Snapshot returns the current state
func (a *Arena) Snapshot() ArenaState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot()
}

// broadcastState sends the current state to all clients as a binary msgpack frame
func (a *Arena) broadcastState() {
	if len(a.clients) == 0 {
		return
	}
	data, err := msgpack.Marshal(a.snapshot())
	if err != nil {
		log.Printf("arena: marshal state: %v", err)
		return
	}
	for c := range a.clients {
		c.SendBinary(data)
	}
}

// broadcastMsg sends a message to all clients
func (a *Arena) broadcastMsg(msg Envelope) {
	for c := range a.clients {
		c.SendJSON(msg)
	}
}
