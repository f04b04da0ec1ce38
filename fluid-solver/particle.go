package fluid

// Particle is a massless tracer carried by the velocity field.
type Particle struct {
	X, Y   float64
	Vx, Vy float64
	Age    float64
	Dead   bool
}

// NewParticle spawns a new particle at the world position {x, y}.
func NewParticle(x, y float64) *Particle {
	return &Particle{X: x, Y: y}
}

// AdvectParticles moves every live particle along the velocity field for one
// DeltaT and ages it. Particles entering a solid cell or older than lifetime
// seconds die. The survivors are compacted to the front of ps and returned.
func (fs *Fluid) AdvectParticles(ps []*Particle, lifetime float64) []*Particle {
	dt := fs.Params.DeltaT
	live := ps[:0]
	for _, p := range ps {
		if p.Dead {
			continue
		}
		p.Vx = fs.Interpolate(p.X, p.Y, FieldU)
		p.Vy = fs.Interpolate(p.X, p.Y, FieldV)
		p.X += p.Vx * dt
		p.Y += p.Vy * dt
		p.Age += dt

		i, k := fs.CellAt(p.X, p.Y)
		if p.Age > lifetime || !fs.IsFluid(i, k) || !finite(p.X) || !finite(p.Y) {
			p.Dead = true
			continue
		}
		live = append(live, p)
	}
	for i := len(live); i < len(ps); i++ {
		ps[i] = nil
	}
	return live
}
