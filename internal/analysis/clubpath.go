package analysis

import (
	"fmt"
	"strings"
)

// ClubPath is the horizontal direction of the club through impact.
type ClubPath string

const (
	PathInsideOut ClubPath = "inside-out"
	PathSquare    ClubPath = "square"
	PathOutsideIn ClubPath = "outside-in"
)

var clubPathAliases = map[string]ClubPath{
	"insideout":  PathInsideOut,
	"intoout":    PathInsideOut,
	"square":     PathSquare,
	"neutral":    PathSquare,
	"straight":   PathSquare,
	"outsidein":  PathOutsideIn,
	"outtoin":    PathOutsideIn,
	"overthetop": PathOutsideIn,
}

// ParseClubPath normalizes free-form path labels onto the three canonical values.
func ParseClubPath(value string) (ClubPath, error) {
	if path, ok := clubPathAliases[compactKey(value)]; ok {
		return path, nil
	}
	return "", fmt.Errorf("unknown club path %q", strings.TrimSpace(value))
}

// Valid reports whether p is a canonical club path.
func (p ClubPath) Valid() bool {
	switch p {
	case PathInsideOut, PathSquare, PathOutsideIn:
		return true
	}
	return false
}
