// Package pairing classifies uploaded point sets by role, merges them into
// index-aligned source and target clouds, and samples ground-truth match
// pairs for annotation.
//
// Key types: Role, Accumulator, MergedClouds, MatchPair, Selection.
//
// Dependency rule: pairing may depend on ply, but never on scene or upload.
package pairing

import "strings"

// Role is the logical component an uploaded file contributes to.
type Role int

const (
	RoleUnknown Role = iota
	RoleStatic
	RoleStartDynamic
	RoleEndDynamic
)

// DefaultStartAliases are extra filename tokens treated like "start". The
// laptop capture of the course demo is named after its dataset id.
var DefaultStartAliases = []string{"laptop_10211"}

// String returns the short machine name of the role.
func (r Role) String() string {
	switch r {
	case RoleStatic:
		return "static"
	case RoleStartDynamic:
		return "start_dynamic"
	case RoleEndDynamic:
		return "end_dynamic"
	default:
		return "unknown"
	}
}

// Label returns the human-readable role name used in status messages.
func (r Role) Label() string {
	switch r {
	case RoleStatic:
		return "Static"
	case RoleStartDynamic:
		return "Start Dynamic"
	case RoleEndDynamic:
		return "End Dynamic"
	default:
		return "Unknown"
	}
}

// RoleFromName applies the filename rules only. It returns RoleUnknown
// when no rule matches. Matching is case-insensitive; "static" wins over
// "start" which wins over "end".
func RoleFromName(fileName string, aliases []string) Role {
	name := strings.ToLower(fileName)
	switch {
	case strings.Contains(name, "static"):
		return RoleStatic
	case strings.Contains(name, "start") || containsAny(name, aliases):
		return RoleStartDynamic
	case strings.Contains(name, "end"):
		return RoleEndDynamic
	default:
		return RoleUnknown
	}
}

// Classify assigns a role to the file at position (0-based) in its batch.
// Unrecognised names fall back on position: the first file is static; a
// later file is start-dynamic while a static set exists and no
// start-dynamic set does; anything else is end-dynamic. Classify never
// returns RoleUnknown.
func Classify(fileName string, position int, hasStatic, hasStartDynamic bool, aliases []string) Role {
	if r := RoleFromName(fileName, aliases); r != RoleUnknown {
		return r
	}
	switch {
	case position == 0:
		return RoleStatic
	case hasStatic && !hasStartDynamic:
		return RoleStartDynamic
	default:
		return RoleEndDynamic
	}
}

func containsAny(name string, tokens []string) bool {
	for _, tok := range tokens {
		if tok != "" && strings.Contains(name, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}
