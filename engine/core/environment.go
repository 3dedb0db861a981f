package core

// Environment is an opaque key-value bag handed to every operator factory
// alongside OperatorSettings. The engine never interprets its contents;
// send/receive style nodes use it for routing addresses and similar values.
type Environment map[string]any

// Get returns the raw value stored under key.
func (e Environment) Get(key string) (any, bool) {
	if e == nil {
		return nil, false
	}

	v, ok := e[key]

	return v, ok
}

// Lookup returns the value stored under key when it has type T.
func Lookup[T any](e Environment, key string) (T, bool) {
	var zero T

	raw, ok := e.Get(key)
	if !ok {
		return zero, false
	}

	v, ok := raw.(T)
	if !ok {
		return zero, false
	}

	return v, true
}

// Clone returns a shallow copy so a running instance is not affected by
// later mutation of the caller's map.
func (e Environment) Clone() Environment {
	if e == nil {
		return nil
	}

	out := make(Environment, len(e))

	for k, v := range e {
		out[k] = v
	}

	return out
}
