// Package chunk splits outgoing responses into transport-safe segments.
package chunk

// DefaultMaxLen matches the common chat-platform message ceiling.
const DefaultMaxLen = 2000

// Split divides text into ordered segments of at most maxLen characters.
// Joining the segments reproduces the input exactly; every segment except
// the last has length exactly maxLen. No attempt is made to avoid splitting
// mid-word or mid-sentence; that is a deliberate simplification.
func Split(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+maxLen-1)/maxLen)
	for i := 0; i < len(runes); i += maxLen {
		end := i + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
