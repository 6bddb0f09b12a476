package isoal

// RegistryOption is implemented by the sink registry to accept configuration options.
type RegistryOption interface {
	SetCapacity(n int) error
	SetLogger(l Logger) error
}

// An Option is a configuration function, which configures the registry.
type Option func(RegistryOption) error

// OptCapacity sets the number of sinks the registry can hold at once.
func OptCapacity(n int) Option {
	return func(opt RegistryOption) error {
		return opt.SetCapacity(n)
	}
}

// OptLogger overrides the package logger for one registry.
func OptLogger(l Logger) Option {
	return func(opt RegistryOption) error {
		return opt.SetLogger(l)
	}
}
