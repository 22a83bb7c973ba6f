package main

import "math/rand/v2"

// Seed generation ranges (upper bounds exclusive)
const (
	SeedCountMax  = 5
	SeedDamageMin = 20
	SeedDamageMax = 30
	SeedSpeedMin  = 1.0
	SeedSpeedMax  = 3.0
)

// AttackBuilder receives attack parameters one at a time
type AttackBuilder interface {
	SetArc(arc int)
	SetSpeed(speed float64)
	SetDamage(damage int)
	SetProjectileNumber(n int)
}

// CompoundAttackBuilder assembles a CompoundAttack from the parameters it was given
type CompoundAttackBuilder struct {
	rng    *rand.Rand
	arc    int
	speed  float64
	damage int
	count  int
}

// NewCompoundAttackBuilder creates a builder whose movement pick draws from rng
func NewCompoundAttackBuilder(rng *rand.Rand) *CompoundAttackBuilder {
	return &CompoundAttackBuilder{rng: rng}
}

func (b *CompoundAttackBuilder) SetArc(arc int)            { b.arc = arc }
func (b *CompoundAttackBuilder) SetSpeed(speed float64)    { b.speed = speed }
func (b *CompoundAttackBuilder) SetDamage(damage int)      { b.damage = damage }
func (b *CompoundAttackBuilder) SetProjectileNumber(n int) { b.count = n }

// Result assembles the compound attack
func (b *CompoundAttackBuilder) Result() *CompoundAttack {
	return NewCompoundAttack(b.rng, b.count, b.speed, b.damage, b.arc)
}

// AttackParams is one randomized parameter draw
type AttackParams struct {
	Count  int
	Damage int
	Speed  float64
	Arc    int
}

// Apply feeds the parameters into a builder
func (p AttackParams) Apply(b AttackBuilder) {
	b.SetArc(p.Arc)
	b.SetSpeed(p.Speed)
	b.SetDamage(p.Damage)
	b.SetProjectileNumber(p.Count)
}

// Director decides which parameters to randomize; it keeps no builder state between calls
type Director struct {
	rng *rand.Rand
	arc int
}

// NewDirector creates a director drawing from rng
func NewDirector(rng *rand.Rand, arc int) *Director {
	return &Director{rng: rng, arc: arc}
}

// RandomParams draws count in [0,5), damage in [20,30) and speed in [1,3)
func (d *Director) RandomParams() AttackParams {
	return AttackParams{
		Count:  d.rng.IntN(SeedCountMax),
		Damage: SeedDamageMin + d.rng.IntN(SeedDamageMax-SeedDamageMin),
		Speed:  SeedSpeedMin + d.rng.Float64()*(SeedSpeedMax-SeedSpeedMin),
		Arc:    d.arc,
	}
}

// ConstructPCGAttack drives b with one random parameter draw
func (d *Director) ConstructPCGAttack(b AttackBuilder) {
	d.RandomParams().Apply(b)
}

// newSeededRand returns a PCG-backed generator for reproducible runs
func newSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}
