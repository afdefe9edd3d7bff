//go:build debug_winsys

package utils

// DebugValidate calls Validate on the provided object and panics if any error
// is returned. This method no-ops unless the debug_winsys build tag is
// present.
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}
