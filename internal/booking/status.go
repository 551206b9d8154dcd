package booking

// transitions is the closed set of allowed status moves. Anything absent
// here is rejected with ErrInvalidTransition, terminal states included.
var transitions = map[Status][]Status{
	StatusPending:             {StatusConfirmed, StatusCancelled, StatusRejected},
	StatusConfirmed:           {StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduleRequested},
	StatusScheduled:           {StatusCompleted, StatusCancelled, StatusRescheduleRequested},
	StatusRescheduleRequested: {StatusConfirmed, StatusCancelled},
	StatusCompleted:           {},
	StatusCancelled:           {},
	StatusRejected:            {},
}

// ValidStatus reports whether s is one of the known appointment statuses.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ValidTargets returns the statuses reachable from the given one. Empty for
// terminal states and unknown statuses.
func ValidTargets(from Status) []Status {
	targets := transitions[from]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// Terminal reports whether no further transition is permitted from s.
func Terminal(s Status) bool {
	targets, ok := transitions[s]
	return ok && len(targets) == 0
}

// reschedulable statuses per the reschedule flow.
func reschedulable(s Status) bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusRescheduleRequested
}
