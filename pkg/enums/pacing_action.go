package enums

// PacingAction is the throttle recommendation the pacing controller emits.
// It is an advisory signal; the delivery throttle that consumes it lives
// outside this service.
type PacingAction string

const (
	PacingActionBoost    PacingAction = "boost"
	PacingActionReduce   PacingAction = "reduce"
	PacingActionMaintain PacingAction = "maintain"
	PacingActionNone     PacingAction = "none"
)

// IsValid reports whether the value matches the canonical pacing action set.
func (a PacingAction) IsValid() bool {
	switch a {
	case PacingActionBoost, PacingActionReduce, PacingActionMaintain, PacingActionNone:
		return true
	default:
		return false
	}
}
