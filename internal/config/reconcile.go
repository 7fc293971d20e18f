package config

// Optional is a string value that may be absent.
type Optional struct {
	Value string
	Valid bool
}

// Some wraps a present value.
func Some(v string) Optional {
	return Optional{Value: v, Valid: true}
}

// None is the absent value.
var None = Optional{}

// Reconcile resolves a configuration key from its three sources.
// Precedence is override > persisted > generated default.
//
// changed is true whenever the resolved value differs from what was persisted:
// an override that replaces (or fills in) the persisted value, or a freshly
// generated default. generate is only called when it is needed.
func Reconcile(persisted, override Optional, generate func() string) (value string, changed bool) {
	if override.Valid {
		return override.Value, !persisted.Valid || persisted.Value != override.Value
	}
	if persisted.Valid {
		return persisted.Value, false
	}
	return generate(), true
}
