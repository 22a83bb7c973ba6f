package main

// CharacterKind is a character archetype
type CharacterKind string

const (
	KindPlayer      CharacterKind = "player"
	KindGoblin      CharacterKind = "goblin"
	KindNecromancer CharacterKind = "necromancer"
)

var characterHalfSize = Vec2{0.4, 0.5}

const probeEpsilon = 0.05

func platformsOnly(_ BodyID, cat Category) bool {
	return cat&CategoryPlatform != 0
}

// Character is a player or enemy with a body in the world
type Character struct {
	ID            string
	Kind          CharacterKind
	Body          BodyID
	HP            int
	MaxHP         int
	Speed         float64 // units/s
	MoveDirection float64 // -1, 0 or +1, consumed by Integrate
	Facing        float64 // -1 or +1
	Attacking     bool
	Alive         bool
	Attack        *CompoundAttack // necromancers fire every template of this

	world       World
	jumpSpeed   float64
	groundProbe float64
	jumpReach   float64
}

// NewCharacter creates a character standing at pos. Enemy HP scales with multiplier.
func NewCharacter(w World, kind CharacterKind, pos Vec2, cfg *Config, multiplier float64) *Character {
	hp := cfg.Arena.MaxHP[kind]
	if kind != KindPlayer {
		hp = int(float64(hp) * multiplier)
	}
	c := &Character{
		ID:          GenerateID(4),
		Kind:        kind,
		HP:          hp,
		MaxHP:       hp,
		Speed:       cfg.Arena.MoveSpeed[kind],
		Facing:      1,
		Alive:       true,
		world:       w,
		jumpSpeed:   cfg.Arena.JumpSpeed,
		groundProbe: cfg.AI.GroundProbe,
		jumpReach:   cfg.AI.JumpReach,
	}
	c.Body = w.CreateBody(BodyDef{
		Position: pos,
		HalfSize: characterHalfSize,
		Category: c.Category(),
		Gravity:  true,
	})
	return c
}

// Category returns the collision category for the character's side
func (c *Character) Category() Category {
	if c.Kind == KindPlayer {
		return CategoryPlayer
	}
	return CategoryEnemy
}

// Side returns the team the character fights for
func (c *Character) Side() Side {
	if c.Kind == KindPlayer {
		return SidePlayer
	}
	return SideEnemy
}

// AttackKind resolves the archetype's projectile
func (c *Character) AttackKind() AttackKind {
	switch c.Kind {
	case KindPlayer:
		return PlayerThrowingDagger
	case KindNecromancer:
		return DeathBolt
	}
	return GoblinThrowingDagger
}

// Position returns the body center
func (c *Character) Position() Vec2 {
	return c.world.Position(c.Body)
}

func (c *Character) feet() Vec2 {
	p := c.Position()
	return Vec2{p.X, p.Y - characterHalfSize.Y + probeEpsilon}
}

// groundedReporter is a world that remembers which bodies landed on its last step
type groundedReporter interface {
	Grounded(id BodyID) bool
}

// IsGrounded reports whether a platform lies directly below the feet
func (c *Character) IsGrounded() bool {
	if gr, ok := c.world.(groundedReporter); ok && gr.Grounded(c.Body) {
		return true
	}
	f := c.feet()
	return c.world.Raycast(f, Vec2{f.X, f.Y - 2*probeEpsilon}, platformsOnly)
}

// IsGroundAhead reports whether there is a platform just past the leading edge in dir
func (c *Character) IsGroundAhead(dir float64) bool {
	f := c.feet()
	x := f.X + Sign(dir)*(characterHalfSize.X+probeEpsilon)
	return c.world.Raycast(Vec2{x, f.Y}, Vec2{x, f.Y - c.groundProbe}, platformsOnly)
}

// CanJumpToPlatform reports whether a platform top lies within jump reach in dir
func (c *Character) CanJumpToPlatform(dir float64) bool {
	f := c.feet()
	x := f.X + Sign(dir)*c.jumpReach
	return c.world.Raycast(Vec2{x, f.Y + c.jumpReach}, Vec2{x, f.Y - c.groundProbe}, platformsOnly)
}

// Jump launches the character upward if it is standing on something
func (c *Character) Jump() bool {
	if !c.IsGrounded() {
		return false
	}
	v := c.world.Velocity(c.Body)
	c.world.SetVelocity(c.Body, Vec2{v.X, c.jumpSpeed})
	return true
}

// Integrate turns the move directive into horizontal velocity
func (c *Character) Integrate() {
	if !c.Alive {
		c.world.SetVelocity(c.Body, Vec2{0, c.world.Velocity(c.Body).Y})
		return
	}
	if c.MoveDirection != 0 {
		c.Facing = Sign(c.MoveDirection)
	}
	v := c.world.Velocity(c.Body)
	c.world.SetVelocity(c.Body, Vec2{c.MoveDirection * c.Speed, v.Y})
}

// TakeDamage applies damage and returns true if the character died
func (c *Character) TakeDamage(amount int) bool {
	if !c.Alive {
		return false
	}
	c.HP -= amount
	if c.HP <= 0 {
		c.HP = 0
		c.Alive = false
		return true
	}
	return false
}

// ToState converts to protocol state
func (c *Character) ToState() CharacterState {
	p := c.Position()
	return CharacterState{
		ID:        c.ID,
		Kind:      string(c.Kind),
		X:         round1(p.X),
		Y:         round1(p.Y),
		Facing:    int(c.Facing),
		HP:        c.HP,
		MaxHP:     c.MaxHP,
		Attacking: c.Attacking,
		Alive:     c.Alive,
	}
}
