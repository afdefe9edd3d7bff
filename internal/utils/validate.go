package utils

// Validatable is used by DebugValidate to act upon all types with a Validate
// method.
type Validatable interface {
	Validate() error
}
