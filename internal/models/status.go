package models

type ApplicationStatus string

const (
	StatusApplied     ApplicationStatus = "applied"
	StatusShortlisted ApplicationStatus = "shortlisted"
	StatusAccepted    ApplicationStatus = "accepted"
	StatusFinished    ApplicationStatus = "finished"
	StatusRejected    ApplicationStatus = "rejected"
	StatusDeleted     ApplicationStatus = "deleted"
	StatusCancelled   ApplicationStatus = "cancelled"
)

// Status classes. An application is exactly one of active, accepted (not
// finished) or closed; finished is both closed and accepted-class.
var (
	ActiveStatuses   = []ApplicationStatus{StatusApplied, StatusShortlisted}
	ClosedStatuses   = []ApplicationStatus{StatusRejected, StatusDeleted, StatusCancelled, StatusFinished}
	AcceptedStatuses = []ApplicationStatus{StatusAccepted, StatusFinished}
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusApplied, StatusShortlisted, StatusAccepted, StatusFinished,
		StatusRejected, StatusDeleted, StatusCancelled:
		return true
	}
	return false
}

func (s ApplicationStatus) IsActive() bool   { return in(s, ActiveStatuses) }
func (s ApplicationStatus) IsClosed() bool   { return in(s, ClosedStatuses) }
func (s ApplicationStatus) IsAccepted() bool { return in(s, AcceptedStatuses) }

var transitions = map[ApplicationStatus][]ApplicationStatus{
	StatusApplied:     {StatusShortlisted, StatusRejected, StatusDeleted, StatusCancelled},
	StatusShortlisted: {StatusAccepted, StatusRejected, StatusDeleted, StatusCancelled},
	StatusAccepted:    {StatusFinished},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to ApplicationStatus) bool {
	return in(to, transitions[from])
}

func in(s ApplicationStatus, set []ApplicationStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
