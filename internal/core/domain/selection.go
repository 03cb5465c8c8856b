package domain

// SelectionPreference picks among multiple candidates that all satisfy the
// accumulated constraints for a package name.
type SelectionPreference string

const (
	// PreferHighest selects the highest satisfying version. Index rank
	// breaks ties between equal versions.
	PreferHighest SelectionPreference = "highest"

	// PreferIndexed selects the first satisfying candidate in the index's
	// declared rank order.
	PreferIndexed SelectionPreference = "indexed"
)

// ParseSelectionPreference maps a configuration string to a preference.
// Unknown values fall back to PreferHighest.
func ParseSelectionPreference(raw string) SelectionPreference {
	switch SelectionPreference(raw) {
	case PreferHighest, PreferIndexed:
		return SelectionPreference(raw)
	default:
		return PreferHighest
	}
}
