package crowd

import "time"

// InterestAfter holds, per update kind, the moment before which a
// participant no longer wants updates of that kind. The zero value wants
// everything.
type InterestAfter [numUpdateKinds]time.Time

// Advance moves the watermark for kind forward to at. It never moves back.
func (ia *InterestAfter) Advance(kind UpdateKind, at time.Time) {
	if !kind.Filtered() {
		return
	}
	if at.After(ia[kind]) {
		ia[kind] = at
	}
}

// Wants reports whether an update of kind stamped at should be delivered.
func (ia *InterestAfter) Wants(kind UpdateKind, at time.Time) bool {
	if !kind.Filtered() {
		return true
	}
	return !at.Before(ia[kind])
}

// Since returns the current watermark for kind.
func (ia *InterestAfter) Since(kind UpdateKind) time.Time {
	if !kind.Filtered() {
		return time.Time{}
	}
	return ia[kind]
}
