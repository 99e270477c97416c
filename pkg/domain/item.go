package domain

// ItemStack is an item identity plus a unit count.
type ItemStack struct {
	ID    string `json:"id" yaml:"id" msgpack:"id"`
	Count int    `json:"count" yaml:"count" msgpack:"count"`
}

// Empty reports whether the stack carries nothing.
func (s ItemStack) Empty() bool {
	return s.ID == "" || s.Count <= 0
}

// WithCount returns a copy of s holding n units.
func (s ItemStack) WithCount(n int) ItemStack {
	s.Count = n
	return s
}
