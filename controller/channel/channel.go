package channel

// A covert channel endpoint.
// Send transmits the full message and returns the number of message
// bytes that were emitted onto the carrier.
// Receive fills data with the next decoded message and returns the
// number of bytes recovered.
// Both may return early with an error, in which case the count still
// reflects the bytes handled up to that point.
type Channel interface {
	Receive(data []byte) (uint64, error)
	Send(data []byte) (uint64, error)
	Close() error
}

// InvalidConfiguration is returned when channel parameters violate
// the ordering or margin invariants. It is raised before any carrier
// unit is sent; once a session starts no re-validation occurs.
type InvalidConfiguration struct {
	Reason string
}

func (e *InvalidConfiguration) Error() string {
	return "invalid configuration: " + e.Reason
}

// WriteCancel is returned from Send when the channel is closed
// while waiting between carrier units.
type WriteCancel struct{}

func (e *WriteCancel) Error() string {
	return "write cancelled"
}
