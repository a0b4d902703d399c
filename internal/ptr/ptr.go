package ptr

// Ref returns a pointer to a copy of v. It is handy for optional fields such as a set's RPE.
func Ref[T any](v T) *T {
	return &v
}
