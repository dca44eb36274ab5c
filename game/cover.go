package game

// CoverProtection returns the damage reduction target enjoys against a shot
// from attacker: the best of 0, 0.5 or 0.75 over the orthogonal neighbours of
// target that are cover tiles, sit on the attacker's side of the target, and
// are not adjacent (8-way) to the attacker.
func (g *Grid) CoverProtection(target, attacker Point) float64 {
	v := target.Sub(attacker)
	best := 0.0
	for _, d := range Orthogonal {
		c := target.Add(d)
		if !g.InBounds(c) {
			continue
		}
		t := g.At(c)
		if t == TileEmpty {
			continue
		}
		if d.X*v.X+d.Y*v.Y >= 0 {
			continue
		}
		if attacker.Chebyshev(c) <= 1 {
			continue
		}
		if p := t.Protection(); p > best {
			best = p
		}
	}
	return best
}

func (b *Battlefield) CoverProtection(target, attacker Point) float64 {
	return b.Grid.CoverProtection(target, attacker)
}
