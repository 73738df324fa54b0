package streetrouter

import (
	"math"

	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/geo"
)

// TurnClass categorizes a turn by the angle swept between the bearing of
// arrival on the previous edge and the bearing of departure on the next.
type TurnClass int

const (
	TurnStraight TurnClass = iota
	TurnRight
	TurnUTurn
	TurnLeft
)

// Turn angle bucket boundaries, in radians, measured as the angle swept
// from prevEdge's arrival bearing to thisEdge's departure bearing.
const (
	straightUpperThreshold = 0.15 * math.Pi
	uTurnLowerThreshold    = 0.85 * math.Pi
	uTurnUpperThreshold    = 1.15 * math.Pi
	straightLowerThreshold = 1.85 * math.Pi
)

// ClassifyTurn buckets the angle swept from arriving on fromEdge to
// departing on toEdge into {straight, left, right, u-turn}. The bucket
// boundaries (0.15pi, 0.85pi, 1.15pi, 1.85pi) are fixed regardless of
// driving side; driveOnRight only decides which of the two turn buckets is
// labeled left versus right, since the same swept angle crosses oncoming
// traffic on one side of the road but not the other.
func ClassifyTurn(fromEdge, toEdge edgestore.Cursor, driveOnRight bool) TurnClass {
	angle := geo.ClockwiseAngleBetween(fromEdge.GetInAngle(), toEdge.GetOutAngle())
	switch {
	case angle < straightUpperThreshold || angle >= straightLowerThreshold:
		return TurnStraight
	case angle < uTurnLowerThreshold:
		if driveOnRight {
			return TurnLeft
		}
		return TurnRight
	case angle < uTurnUpperThreshold:
		return TurnUTurn
	default: // angle < straightLowerThreshold
		if driveOnRight {
			return TurnRight
		}
		return TurnLeft
	}
}

// CarTurnCostSeconds is the car turn-cost policy table: straight ahead
// costs nothing extra, a turn across oncoming traffic costs 30s, a turn
// with the flow of traffic costs 10s, and a u-turn costs 90s.
func CarTurnCostSeconds(class TurnClass) float64 {
	switch class {
	case TurnStraight:
		return 0
	case TurnLeft:
		return 30
	case TurnRight:
		return 10
	case TurnUTurn:
		return 90
	default:
		return 0
	}
}

// zeroDeltaNudgeSeconds is added to a transition whose computed cost is
// exactly zero. A run of zero-cost edges (common at splitter vertices,
// where a point-linkage split produces a pair with no length and no turn
// cost) would otherwise let the search revisit the same value endlessly
// without making monotonic progress, which defeats the settled/touched
// bookkeeping that assumes costs strictly increase along a path.
const zeroDeltaNudgeSeconds = 1e-3

// applyZeroDeltaNudge returns delta unless it is exactly zero, in which case
// it returns the smallest safe positive nudge instead.
func applyZeroDeltaNudge(delta float64) float64 {
	if delta == 0 {
		return zeroDeltaNudgeSeconds
	}
	return delta
}
