package isoal

// ConfigCache persists sink configurations by connection handle, so a
// receiver can restore its sinks after a restart.
type ConfigCache interface {
	Store(conn uint16, cfg SinkConfig, replace bool) error
	Load(conn uint16) (SinkConfig, error)
	Clear() error
}
