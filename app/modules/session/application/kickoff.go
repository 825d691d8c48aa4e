package sessionservice

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/matchops/matchops/app/shared/types"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Formats of the gameDate and gameTime fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var ErrUnrecognizedKickoff = errors.New("could not recognize kickoff time")

var kickoffLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05Z07:00",
}

var kickoffParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseKickoff turns input such as "2024-09-21 10:30" or "saturday at 10am"
// into gameDate and gameTime values, relative to now.
func ParseKickoff(input string, now time.Time) (date, clock string, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", "", ErrUnrecognizedKickoff
	}

	for _, layout := range kickoffLayouts {
		if t, err := time.ParseInLocation(layout, input, now.Location()); err == nil {
			return t.Format(DateLayout), t.Format(TimeLayout), nil
		}
	}

	r, err := kickoffParser.Parse(strings.ToLower(input), now)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrUnrecognizedKickoff, err)
	}
	if r == nil {
		return "", "", fmt.Errorf("%w: %q", ErrUnrecognizedKickoff, input)
	}
	t := r.Time.In(now.Location())
	return t.Format(DateLayout), t.Format(TimeLayout), nil
}

// SetKickoff parses input and sets the game date and time together.
func (s *Store) SetKickoff(input string) error {
	date, clock, err := ParseKickoff(input, s.now())
	if err != nil {
		return err
	}
	s.set(func(g *types.GameState) {
		g.GameDate = date
		g.GameTime = clock
	})
	s.logger.Debug("Kickoff set", slog.String("date", date), slog.String("time", clock))
	return nil
}
