package paper

// ReferenceStatus is the processing state of a reference. Transitions are
// checked with CanTransition; the queue worker is the only writer.
type ReferenceStatus string

const (
	StatusNotStarted ReferenceStatus = "not_started"
	StatusPending    ReferenceStatus = "pending"
	StatusProcessing ReferenceStatus = "processing"
	StatusProcessed  ReferenceStatus = "processed"
	StatusFailed     ReferenceStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s ReferenceStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusPending, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s ends an enqueue attempt.
func (s ReferenceStatus) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// CanTransition reports whether the status change from -> to is legal:
//
//	not_started -> pending -> processing -> processed | failed
//
// with the single backward edge failed -> pending (explicit re-enqueue).
func CanTransition(from, to ReferenceStatus) bool {
	switch from {
	case StatusNotStarted:
		return to == StatusPending
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusProcessed || to == StatusFailed
	case StatusFailed:
		return to == StatusPending
	default:
		return false
	}
}
