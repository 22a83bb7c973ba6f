package main

import (
	"log"
	"math"
)

// maxLiveProjectiles caps the live set; spawns beyond it are dropped
const maxLiveProjectiles = 500

// SceneRenderer receives one draw call per projectile and character each frame
type SceneRenderer interface {
	DrawProjectile(p *Projectile)
	DrawCharacter(c *Character)
}

// AttackManager owns every live projectile
type AttackManager struct {
	world      World
	cfg        AttackConfig
	multiplier float64

	projectiles []*Projectile
	byBody      map[BodyID]*Projectile
	straight    MovementStrategy
	timers      map[Timed]struct{}
}

// NewAttackManager creates a manager spawning bodies into w
func NewAttackManager(w World, cfg AttackConfig) *AttackManager {
	return &AttackManager{
		world:      w,
		cfg:        cfg,
		multiplier: 1,
		byBody:     make(map[BodyID]*Projectile),
		straight:   &StraightMovement{},
		timers:     make(map[Timed]struct{}),
	}
}

// Multiplier returns the current enemy scaling factor
func (m *AttackManager) Multiplier() float64 { return m.multiplier }

// IncreaseDifficulty sets the multiplier to 1 + level*increase. Live projectiles keep their stats.
func (m *AttackManager) IncreaseDifficulty(level int) {
	m.multiplier = DifficultyMultiplier(level, m.cfg.DifficultyIncrease)
}

// OnDifficultyChanged implements DifficultyObserver
func (m *AttackManager) OnDifficultyChanged(level int) {
	m.IncreaseDifficulty(level)
}

// Spawn fires an attack of the given kind. Enemy attacks have damage and speed
// scaled by the multiplier and rounded; player attacks are never scaled.
func (m *AttackManager) Spawn(pos Vec2, dir float64, side Side, kind AttackKind) *Projectile {
	stats, ok := m.cfg.Kinds[kind]
	if !ok {
		log.Printf("attacks: unknown attack kind %q", kind)
		return nil
	}
	damage, speed := stats.Damage, stats.Speed
	if side == SideEnemy {
		damage = int(math.Round(float64(stats.Damage) * m.multiplier))
		speed = math.Round(stats.Speed * m.multiplier)
	}
	dir = Sign(dir)
	p := &Projectile{
		ID:       GenerateID(3),
		Kind:     kind,
		Side:     side,
		Pos:      Vec2{pos.X + dir*stats.Offset, pos.Y},
		Dir:      dir,
		Speed:    speed,
		Scale:    1,
		Damage:   damage,
		Movement: m.straight,
	}
	return m.add(p)
}

// SpawnTemplate fires one enemy projectile instantiated from a template
func (m *AttackManager) SpawnTemplate(t *AttackTemplate, pos Vec2, dir float64) *Projectile {
	p := t.Instantiate(pos, dir, SideEnemy, m.multiplier)
	if stats, ok := m.cfg.Kinds[p.Kind]; ok {
		p.Pos.X += p.Dir * stats.Offset
	}
	return m.add(p)
}

func (m *AttackManager) add(p *Projectile) *Projectile {
	if len(m.projectiles) >= maxLiveProjectiles {
		return nil
	}
	p.Body = m.world.CreateBody(BodyDef{
		Position: p.Pos,
		HalfSize: Vec2{m.cfg.SpriteWidth / 2, m.cfg.SpriteHeight / 2},
		Category: CategoryAttack,
	})
	p.Tick(0)
	m.world.SetVelocity(p.Body, p.Vel)
	m.projectiles = append(m.projectiles, p)
	m.byBody[p.Body] = p
	return p
}

// Update advances each shared strategy timer once, applies every projectile's
// strategies, flags those that left the view band by more than one sprite
// width, then removes everything flagged.
func (m *AttackManager) Update(dt, viewCenterX, viewWidth float64) {
	right := viewCenterX + viewWidth/2 + m.cfg.SpriteWidth
	left := viewCenterX - viewWidth/2 - m.cfg.SpriteWidth
	AdvanceTimers(m.projectiles, dt, m.timers)
	for _, p := range m.projectiles {
		p.Pos = m.world.Position(p.Body)
		p.Tick(dt)
		m.world.SetVelocity(p.Body, p.Vel)
		if p.Pos.X > right || p.Pos.X < left {
			p.Remove = true
		}
	}
	m.sweep()
}

// sweep destroys the bodies of flagged projectiles and drops them from the live set
func (m *AttackManager) sweep() {
	n := 0
	for _, p := range m.projectiles {
		if p.Remove {
			m.world.DestroyBody(p.Body)
			delete(m.byBody, p.Body)
			continue
		}
		m.projectiles[n] = p
		n++
	}
	for i := n; i < len(m.projectiles); i++ {
		m.projectiles[i] = nil
	}
	m.projectiles = m.projectiles[:n]
}

// ByBody looks up the projectile owning a body
func (m *AttackManager) ByBody(id BodyID) (*Projectile, bool) {
	p, ok := m.byBody[id]
	return p, ok
}

// Clear removes every live projectile
func (m *AttackManager) Clear() {
	for _, p := range m.projectiles {
		p.Remove = true
	}
	m.sweep()
}

// Projectiles returns the live set
func (m *AttackManager) Projectiles() []*Projectile { return m.projectiles }

// Len returns the number of live projectiles
func (m *AttackManager) Len() int { return len(m.projectiles) }

// Render draws every live projectile
func (m *AttackManager) Render(r SceneRenderer) {
	for _, p := range m.projectiles {
		r.DrawProjectile(p)
	}
}
