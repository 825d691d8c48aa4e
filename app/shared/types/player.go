package types

import "maps"

// Player is a member of the master roster.
type Player struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Nickname     string         `json:"nickname,omitempty"`
	JerseyNumber string         `json:"jerseyNumber,omitempty"`
	IsActive     bool           `json:"isActive"`
	IsGoalie     bool           `json:"isGoalie,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	Stats        map[string]any `json:"stats,omitempty"`
	RelX         *float64       `json:"relX,omitempty"`
	RelY         *float64       `json:"relY,omitempty"`
	Version      int            `json:"version,omitempty"`
}

// OnField reports whether the player has a field position.
func (p Player) OnField() bool {
	return p.RelX != nil && p.RelY != nil
}

// Clone returns a deep copy of p.
func (p Player) Clone() Player {
	out := p
	if p.Stats != nil {
		out.Stats = maps.Clone(p.Stats)
	}
	if p.RelX != nil {
		x := *p.RelX
		out.RelX = &x
	}
	if p.RelY != nil {
		y := *p.RelY
		out.RelY = &y
	}
	return out
}

// ClonePlayers deep-copies a roster slice.
func ClonePlayers(in []Player) []Player {
	if in == nil {
		return nil
	}
	out := make([]Player, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// FindPlayer returns the index of the player with id, or -1.
func FindPlayer(players []Player, id string) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
