// Package result tags pipeline values with whether they are genuine data or
// a substituted default.
package result

// Text is a string value produced by a pipeline stage.
type Text struct {
	Value    string
	Reason   string
	fallback bool
}

// Ok wraps a value that came from its real source.
func Ok(value string) Text {
	return Text{Value: value}
}

// Fallback wraps a default that replaced a missing or failed value.
func Fallback(value, reason string) Text {
	return Text{Value: value, Reason: reason, fallback: true}
}

// IsFallback reports whether the value was substituted.
func (t Text) IsFallback() bool {
	return t.fallback
}

func (t Text) String() string {
	return t.Value
}
