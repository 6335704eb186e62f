package recognition

import (
	"math"
	"sync"
)

// GalleryEntry is one enrolled identity in the matcher gallery.
type GalleryEntry struct {
	StudentID string
	Name      string
	Vector    Descriptor
}

// MatchResult pairs a probe descriptor with its best gallery candidate.
type MatchResult struct {
	StudentID string
	Name      string
	Distance  float64
	Matched   bool
}

// Matcher finds the closest enrolled identity for a probe descriptor.
// It is safe for concurrent use; the gallery can be reloaded while
// recognition streams are running.
type Matcher struct {
	mu        sync.RWMutex
	gallery   []GalleryEntry
	tolerance float64
}

// NewMatcher creates a Matcher with the given match tolerance.
// Lower values are more strict (fewer false positives).
func NewMatcher(tolerance float64) *Matcher {
	return &Matcher{tolerance: tolerance}
}

// SetGallery replaces the enrolled gallery.
func (m *Matcher) SetGallery(entries []GalleryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gallery = entries
}

// GallerySize returns the number of enrolled identities.
func (m *Matcher) GallerySize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.gallery)
}

// Match returns the best gallery candidate for the probe. Matched is false
// when the gallery is empty or the closest distance exceeds the tolerance;
// in that case the candidate fields still describe the nearest neighbor.
func (m *Matcher) Match(probe Descriptor) MatchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	best := MatchResult{Distance: math.MaxFloat64}
	for _, entry := range m.gallery {
		dist := EuclideanDistance(probe, entry.Vector)
		if dist < best.Distance {
			best = MatchResult{
				StudentID: entry.StudentID,
				Name:      entry.Name,
				Distance:  dist,
			}
		}
	}

	best.Matched = len(m.gallery) > 0 && best.Distance < m.tolerance
	return best
}
