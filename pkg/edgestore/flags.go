package edgestore

// Flag is a bit in the 32-bit per-directed-edge flag word. The word is
// split into three groups: edge-type classification (low bits), per-
// direction mode permissions (middle bits), and bike level-of-traffic-stress
// (five bits, 16-20, directly above the permissions; bits 21-31 are unused).
// LTS levels 1-4 are mutually exclusive; see LTS.
type Flag int32

const (
	FlagBikePath Flag = 1 << iota
	FlagSidewalk
	FlagCrossing
	FlagRoundabout
	FlagElevator
	FlagStairs
	FlagPlatform
	FlagLink
	FlagNoThruPedestrian
	FlagNoThruBike
	FlagNoThruCar

	FlagAllowPedestrian
	FlagAllowBike
	FlagAllowCar
	FlagAllowWheelchair
	FlagAllowLimitedWheelchair

	// Five bits (16-20): one "explicit" marker plus one bit per LTS
	// level. Kept contiguous so a single mask isolates them (see ltsMask
	// below).
	FlagBikeLTSExplicit
	FlagBikeLTS1
	FlagBikeLTS2
	FlagBikeLTS3
	FlagBikeLTS4
)

const ltsMask = FlagBikeLTSExplicit | FlagBikeLTS1 | FlagBikeLTS2 | FlagBikeLTS3 | FlagBikeLTS4

// StreetMode selects which permission bit and speed column a traversal uses.
type StreetMode uint8

const (
	ModeWalk StreetMode = iota
	ModeBicycle
	ModeCar
)

// AllowsMode reports whether flags permits traversal by the given mode.
// Wheelchair access is a refinement of pedestrian access, not a separate
// mode switch, and is checked by RequireWheelchair in a request, not here.
func AllowsMode(flags Flag, mode StreetMode) bool {
	switch mode {
	case ModeWalk:
		return flags&FlagAllowPedestrian != 0
	case ModeBicycle:
		return flags&FlagAllowBike != 0
	case ModeCar:
		return flags&FlagAllowCar != 0
	default:
		return false
	}
}

// AllowsWheelchair reports whether flags permit a wheelchair or a
// limited-mobility wheelchair (the caller decides which it requires).
func AllowsWheelchair(flags Flag, limitedOK bool) bool {
	if flags&FlagAllowWheelchair != 0 {
		return true
	}
	return limitedOK && flags&FlagAllowLimitedWheelchair != 0
}

// LTS returns the bike level-of-traffic-stress encoded in flags: 1-4, or 0
// if no LTS bit is set (unclassified). The explicit-flag bit marks that the
// level was asserted directly by a labeler rather than inferred; it doesn't
// change the returned level.
func LTS(flags Flag) int {
	switch {
	case flags&FlagBikeLTS1 != 0:
		return 1
	case flags&FlagBikeLTS2 != 0:
		return 2
	case flags&FlagBikeLTS3 != 0:
		return 3
	case flags&FlagBikeLTS4 != 0:
		return 4
	default:
		return 0
	}
}

// WithLTS returns flags with any existing LTS level bits cleared and the
// given level (1-4) set. level outside [1,4] clears the LTS bits entirely.
func WithLTS(flags Flag, level int, explicit bool) Flag {
	flags &^= ltsMask
	switch level {
	case 1:
		flags |= FlagBikeLTS1
	case 2:
		flags |= FlagBikeLTS2
	case 3:
		flags |= FlagBikeLTS3
	case 4:
		flags |= FlagBikeLTS4
	}
	if explicit {
		flags |= FlagBikeLTSExplicit
	}
	return flags
}

// StreetClass is one of five discrete OSM-derived road classes, coarsest to
// finest grained from the router's point of view.
type StreetClass uint8

const (
	StreetClassMotorway StreetClass = iota
	StreetClassPrimary
	StreetClassSecondary
	StreetClassLocal
	StreetClassPath
)
