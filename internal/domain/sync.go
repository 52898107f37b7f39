package domain

// SyncStatus is the result class of a DataCite metadata push.
type SyncStatus string

const (
	SyncNotRequired SyncStatus = "not_required"
	SyncSucceeded   SyncStatus = "succeeded"
	SyncFailed      SyncStatus = "failed"
)

// SyncOutcome reports a best-effort push to the DOI registry. It is data,
// never an error: the local mutation has already succeeded.
type SyncOutcome struct {
	Status       SyncStatus `json:"status"`
	Attempted    bool       `json:"attempted"`
	Success      bool       `json:"success"`
	ErrorMessage *string    `json:"error_message"`
	Identifier   *string    `json:"identifier"`
}

func SyncNotRequiredOutcome() SyncOutcome {
	return SyncOutcome{Status: SyncNotRequired}
}

func SyncSucceededOutcome(doi string) SyncOutcome {
	return SyncOutcome{Status: SyncSucceeded, Attempted: true, Success: true, Identifier: &doi}
}

// SyncFailedOutcome builds a failure; doi may be empty when nothing was addressed.
func SyncFailedOutcome(doi string, attempted bool, msg string) SyncOutcome {
	o := SyncOutcome{Status: SyncFailed, Attempted: attempted, ErrorMessage: &msg}
	if doi != "" {
		o.Identifier = &doi
	}
	return o
}
