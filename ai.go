package main

import (
	"math"
	"time"
)

// Status is the result of one task evaluation
type Status int

const (
	StatusFailed Status = iota
	StatusRunning
	StatusSucceeded
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	}
	return "failed"
}

// Task is a behavior-tree node
type Task interface {
	Execute(a *Agent) Status
}

// Clock supplies the current time to cooldown checks
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Selector returns the first child status that is not Failed
type Selector struct{ Children []Task }

func (s *Selector) Execute(a *Agent) Status {
	for _, c := range s.Children {
		if st := c.Execute(a); st != StatusFailed {
			return st
		}
	}
	return StatusFailed
}

// Sequence returns the first child status that is not Succeeded
type Sequence struct{ Children []Task }

func (s *Sequence) Execute(a *Agent) Status {
	for _, c := range s.Children {
		if st := c.Execute(a); st != StatusSucceeded {
			return st
		}
	}
	return StatusSucceeded
}

// AttackTask fires the agent's attack unless its character is still cooling down
type AttackTask struct {
	Attacks   *AttackManager
	Clock     Clock
	Cooldowns map[CharacterKind]time.Duration

	lastAttack map[string]time.Time
}

// NewAttackTask creates an attack task with an empty cooldown map
func NewAttackTask(attacks *AttackManager, clock Clock, cooldowns map[CharacterKind]time.Duration) *AttackTask {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	return &AttackTask{
		Attacks:    attacks,
		Clock:      clock,
		Cooldowns:  cooldowns,
		lastAttack: make(map[string]time.Time),
	}
}

// LastAttack returns when a character last attacked
func (t *AttackTask) LastAttack(id string) (time.Time, bool) {
	ts, ok := t.lastAttack[id]
	return ts, ok
}

// Forget drops a character's cooldown entry
func (t *AttackTask) Forget(id string) {
	delete(t.lastAttack, id)
}

func (t *AttackTask) Execute(a *Agent) Status {
	if a == nil || a.Self == nil || a.Target == nil {
		return StatusFailed
	}
	self := a.Self
	now := t.Clock.Now()
	if last, ok := t.lastAttack[self.ID]; ok && now.Sub(last) < t.Cooldowns[self.Kind] {
		return StatusFailed
	}

	pos := self.Position()
	dir := Sign(a.Target.X - pos.X)
	// an empty compound falls back to the kind's base attack
	spawned := 0
	if self.Kind == KindNecromancer && self.Attack != nil && self.Attack.AttackSize() > 0 {
		for _, tmpl := range self.Attack.Templates() {
			if t.Attacks.SpawnTemplate(tmpl, pos, dir) != nil {
				spawned++
			}
		}
	} else if t.Attacks.Spawn(pos, dir, self.Side(), self.AttackKind()) != nil {
		spawned++
	}
	if spawned == 0 {
		return StatusFailed
	}

	t.lastAttack[self.ID] = now
	self.Facing = dir
	self.Attacking = true
	return StatusSucceeded
}

// RangeCheckTask succeeds while the agent's attack (or detection) range flag is set
type RangeCheckTask struct {
	UseAttackRange bool
}

func (t *RangeCheckTask) Execute(a *Agent) Status {
	if a == nil {
		return StatusFailed
	}
	in := a.InDetectionRange
	if t.UseAttackRange {
		in = a.InAttackRange
	}
	if in {
		return StatusSucceeded
	}
	return StatusFailed
}

type patrolState struct {
	dir   float64
	timer float64
}

// PatrolTask walks back and forth, turning on a fixed interval or at a ledge
type PatrolTask struct {
	SwitchInterval float64 // seconds

	states map[string]*patrolState
}

// NewPatrolTask creates a patrol task
func NewPatrolTask(switchInterval float64) *PatrolTask {
	return &PatrolTask{SwitchInterval: switchInterval, states: make(map[string]*patrolState)}
}

// Forget drops a character's patrol state
func (t *PatrolTask) Forget(id string) {
	delete(t.states, id)
}

func (t *PatrolTask) Execute(a *Agent) Status {
	if a == nil || a.Self == nil {
		return StatusFailed
	}
	self := a.Self
	st, ok := t.states[self.ID]
	if !ok {
		st = &patrolState{dir: Sign(self.Facing)}
		t.states[self.ID] = st
	}
	st.timer += a.Delta
	if st.timer >= t.SwitchInterval || !self.IsGroundAhead(st.dir) {
		st.dir = -st.dir
		st.timer = 0
	}
	self.MoveDirection = st.dir
	self.Facing = st.dir
	return StatusRunning
}

// PursueTask steers toward the target; it never completes while a target is known
type PursueTask struct {
	MinDistance float64
}

func (t *PursueTask) Execute(a *Agent) Status {
	if a == nil || a.Self == nil || a.Target == nil {
		return StatusFailed
	}
	self := a.Self
	pos := self.Position()
	dir := Sign(a.Target.X - pos.X)
	groundAhead := self.IsGroundAhead(dir)

	if self.Kind == KindGoblin && !groundAhead && self.CanJumpToPlatform(dir) && self.IsGrounded() {
		self.Jump()
		self.MoveDirection = dir
		self.Facing = dir
		return StatusRunning
	}

	self.Facing = dir
	if Distance(pos, *a.Target) <= t.MinDistance || !groundAhead {
		self.MoveDirection = 0
		return StatusRunning
	}
	self.MoveDirection = dir
	return StatusRunning
}

// Agent is the per-enemy blackboard read by leaf tasks
type Agent struct {
	Self             *Character
	Target           *Vec2 // nil when there is nothing to chase
	DetectionRange   float64
	AttackRange      float64
	InDetectionRange bool
	InAttackRange    bool
	Distance         float64
	Delta            float64 // seconds since the previous tree step
}

// NewAgent creates an agent for an enemy character
func NewAgent(self *Character, rc RangeConfig) *Agent {
	return &Agent{Self: self, DetectionRange: rc.Detect, AttackRange: rc.Attack}
}

// Refresh recomputes target and range flags from the world.
// The attack range also needs a clear horizontal line of sight at the agent's height.
func (a *Agent) Refresh(w World, target *Character) {
	if target == nil || !target.Alive {
		a.Target = nil
		a.InDetectionRange = false
		a.InAttackRange = false
		a.Distance = math.Inf(1)
		return
	}
	self := a.Self.Position()
	tp := target.Position()
	a.Target = &tp
	a.Distance = Distance(self, tp)
	a.InDetectionRange = a.Distance <= a.DetectionRange
	a.InAttackRange = math.Abs(tp.X-self.X) <= a.AttackRange &&
		!w.Raycast(self, Vec2{tp.X, self.Y}, platformsOnly)
}

// EnemyBrain steps one enemy's behavior tree on a fixed interval
type EnemyBrain struct {
	Agent *Agent
	Root  Task
	Last  Status

	interval float64
	acc      float64
}

// NewEnemyTree builds Selector[Sequence[attack range, attack], Sequence[detection range, pursue], patrol]
func NewEnemyTree(attack *AttackTask, pursue *PursueTask, patrol *PatrolTask) Task {
	return &Selector{Children: []Task{
		&Sequence{Children: []Task{&RangeCheckTask{UseAttackRange: true}, attack}},
		&Sequence{Children: []Task{&RangeCheckTask{UseAttackRange: false}, pursue}},
		patrol,
	}}
}

// NewEnemyBrain creates a brain stepping root every interval seconds
func NewEnemyBrain(agent *Agent, root Task, interval float64) *EnemyBrain {
	return &EnemyBrain{Agent: agent, Root: root, interval: interval}
}

// Update accumulates dt and, once the interval has passed, refreshes the agent
// and evaluates the tree. Returns true if the tree was stepped.
func (b *EnemyBrain) Update(dt float64, w World, target *Character) bool {
	b.acc += dt
	if b.acc < b.interval {
		return false
	}
	b.Agent.Delta = b.acc
	b.acc = 0
	b.Agent.Self.Attacking = false
	b.Agent.Refresh(w, target)
	b.Last = b.Root.Execute(b.Agent)
	return true
}
