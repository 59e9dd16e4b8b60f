package domain

// Action is a request to move a time entry between statuses.
type Action string

const (
	ActionClockIn          Action = "CLOCK_IN"
	ActionClockOut         Action = "CLOCK_OUT"
	ActionStartBreak       Action = "START_BREAK"
	ActionEndBreak         Action = "END_BREAK"
	ActionStartUnavailable Action = "START_UNAVAILABLE"
	ActionEndUnavailable   Action = "END_UNAVAILABLE"
)

type transitionKey struct {
	from   EntryStatus
	action Action
}

// transitions lists every allowed (status, action) pair and the status it leads to.
// Clock-in from no entry at all is decided by which rows exist, so only the
// reactivation of a submitted entry appears here.
var transitions = map[transitionKey]EntryStatus{
	{StatusActive, ActionClockOut}:            StatusSubmitted,
	{StatusActive, ActionStartBreak}:          StatusOnBreak,
	{StatusOnBreak, ActionEndBreak}:           StatusActive,
	{StatusActive, ActionStartUnavailable}:    StatusUnavailable,
	{StatusUnavailable, ActionEndUnavailable}: StatusActive,
	{StatusSubmitted, ActionClockIn}:          StatusActive, // reactivation
}

// NextStatus returns the status reached by applying action to an entry in status from.
func NextStatus(from EntryStatus, action Action) (EntryStatus, bool) {
	to, ok := transitions[transitionKey{from, action}]
	return to, ok
}
