package analysis

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Club identifies the club used for a swing.
type Club string

const (
	ClubDriver    Club = "driver"
	ClubWood      Club = "wood"
	ClubHybrid    Club = "hybrid"
	ClubLongIron  Club = "long_iron"
	ClubMidIron   Club = "mid_iron"
	ClubShortIron Club = "short_iron"
	ClubWedge     Club = "wedge"
	ClubPutter    Club = "putter"
)

// Clubs lists every supported club in bag order.
var Clubs = []Club{ClubDriver, ClubWood, ClubHybrid, ClubLongIron, ClubMidIron, ClubShortIron, ClubWedge, ClubPutter}

// ParseClub accepts the canonical value or any spacing/casing variant of the
// display label ("Long Iron", "long-iron", "LongIron").
func ParseClub(value string) (Club, error) {
	key := compactKey(value)
	if key == "" {
		return "", fmt.Errorf("club is required")
	}
	for _, club := range Clubs {
		if compactKey(string(club)) == key {
			return club, nil
		}
	}
	return "", fmt.Errorf("unknown club %q", strings.TrimSpace(value))
}

// Label returns the human-facing name, e.g. "Long Iron".
func (c Club) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(c), "_", " "))
}

// Valid reports whether c is one of the supported clubs.
func (c Club) Valid() bool {
	for _, club := range Clubs {
		if c == club {
			return true
		}
	}
	return false
}

func compactKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch r {
		case ' ', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
