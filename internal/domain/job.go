package domain

// JobKind identifies which handler processes a crawl job.
type JobKind string

const (
	JobContract     JobKind = "contract"
	JobWallet       JobKind = "wallet"
	JobTransactions JobKind = "transactions"
	JobSweep        JobKind = "periodic-sweep"
)

// JobKinds lists every kind in handler registration order.
var JobKinds = []JobKind{JobContract, JobWallet, JobTransactions, JobSweep}

// String returns the string representation of JobKind.
func (k JobKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known value.
func (k JobKind) IsValid() bool {
	switch k {
	case JobContract, JobWallet, JobTransactions, JobSweep:
		return true
	}
	return false
}

// JobPayload is the data carried by a crawl job.
type JobPayload struct {
	Target       string `json:"target,omitempty"`  // contract or wallet address
	Expand       bool   `json:"expand,omitempty"`  // also fetch transaction history
	DelayMinutes int    `json:"delay,omitempty"`   // sweep interval, periodic-sweep only
	Attempt      int    `json:"attempt,omitempty"` // wallet retry counter
}
