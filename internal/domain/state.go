package domain

// ConnectionState is the lifecycle state of one stream subscription.
type ConnectionState string

const (
	StateConnecting ConnectionState = "connecting"
	StateOpen       ConnectionState = "open"
	StateErrored    ConnectionState = "errored"
	StateClosed     ConnectionState = "closed"
)

// Status is what observers see of a subscription: the connectivity flag and
// the last human-readable error, if any.
type Status struct {
	State      ConnectionState `json:"state"`
	Connected  bool            `json:"connected"`
	LastError  string          `json:"last_error,omitempty"`
	Endpoint   string          `json:"endpoint"`
	Generation uint64          `json:"generation"`
}
