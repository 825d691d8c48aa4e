package types

// Season groups games played over a league season.
type Season struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Location         string   `json:"location,omitempty"`
	PeriodCount      int      `json:"periodCount,omitempty"`
	PeriodDuration   int      `json:"periodDuration,omitempty"`
	Archived         bool     `json:"archived,omitempty"`
	DefaultRosterIDs []string `json:"defaultRosterIds,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	Version          int      `json:"version,omitempty"`
}

// Tournament groups games played at one tournament.
type Tournament struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Location         string   `json:"location,omitempty"`
	Level            string   `json:"level,omitempty"`
	PeriodCount      int      `json:"periodCount,omitempty"`
	PeriodDuration   int      `json:"periodDuration,omitempty"`
	Archived         bool     `json:"archived,omitempty"`
	DefaultRosterIDs []string `json:"defaultRosterIds,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	Version          int      `json:"version,omitempty"`
}

// Clone returns a deep copy of s.
func (s Season) Clone() Season {
	s.DefaultRosterIDs = cloneSlice(s.DefaultRosterIDs)
	return s
}

// Clone returns a deep copy of t.
func (t Tournament) Clone() Tournament {
	t.DefaultRosterIDs = cloneSlice(t.DefaultRosterIDs)
	return t
}

// CloneSeasons deep-copies a season list.
func CloneSeasons(in []Season) []Season {
	if in == nil {
		return nil
	}
	out := make([]Season, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// CloneTournaments deep-copies a tournament list.
func CloneTournaments(in []Tournament) []Tournament {
	if in == nil {
		return nil
	}
	out := make([]Tournament, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
