package pipeline

// ShouldExtract is the sole gate in front of the costly extraction step.
// Extraction runs when forced, on a first scrape (no stored hash), or when
// the rendered content's fingerprint changed.
func ShouldExtract(newHash string, storedHash *string, force bool) bool {
	if force {
		return true
	}
	if storedHash == nil || *storedHash == "" {
		return true
	}
	return newHash != *storedHash
}
