package store

// EmptySelectionError is the precondition failure returned by
// ConfirmImportToMap when no feature is selected. State is unchanged.
type EmptySelectionError struct{}

func (e *EmptySelectionError) Error() string {
	return "no features selected: select at least one feature before importing"
}

// NotLineStringError is returned when a package assignment targets a
// feature that is not line-shaped.
type NotLineStringError struct {
	FeatureID string
}

func (e *NotLineStringError) Error() string {
	return "packages can only be assigned to LineString features: " + e.FeatureID
}
