package enums

import "fmt"

// HistoryAction tags an entry in the subscription audit trail.
type HistoryAction string

const (
	HistoryActionCreated   HistoryAction = "created"
	HistoryActionActivated HistoryAction = "activated"
	HistoryActionCancelled HistoryAction = "cancelled"
	HistoryActionExpired   HistoryAction = "expired"
)

var validHistoryActions = []HistoryAction{
	HistoryActionCreated,
	HistoryActionActivated,
	HistoryActionCancelled,
	HistoryActionExpired,
}

// String implements fmt.Stringer.
func (a HistoryAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known HistoryAction.
func (a HistoryAction) IsValid() bool {
	for _, candidate := range validHistoryActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// HistoryActionFor returns the audit action recorded when a subscription enters status.
func HistoryActionFor(status SubscriptionStatus) (HistoryAction, error) {
	switch status {
	case SubscriptionStatusPending:
		return HistoryActionCreated, nil
	case SubscriptionStatusActive:
		return HistoryActionActivated, nil
	case SubscriptionStatusCancelled:
		return HistoryActionCancelled, nil
	case SubscriptionStatusExpired:
		return HistoryActionExpired, nil
	}
	return "", fmt.Errorf("no history action for status %q", status)
}
