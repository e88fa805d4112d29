package profile

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Detector picks the most likely company profile from extracted document
// text by multi-pattern keyword matching. One pass over the text matches
// every profile's detection keywords simultaneously.
type Detector struct {
	matcher  *ahocorasick.Matcher
	owners   []*Profile // owner of each pattern, same order as the matcher
	profiles []*Profile
	mu       sync.RWMutex
}

// NewDetector builds a detector over the given profiles.
func NewDetector(profiles []*Profile) *Detector {
	d := &Detector{}
	d.Build(profiles)
	return d
}

// Build rebuilds the keyword matcher. Keywords are uppercased; matching is
// case-insensitive against uppercased document text.
func (d *Detector) Build(profiles []*Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.profiles = profiles
	var patterns [][]byte
	d.owners = d.owners[:0]

	for _, p := range profiles {
		for _, kw := range p.DetectKeywords {
			kw = strings.ToUpper(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			patterns = append(patterns, []byte(kw))
			d.owners = append(d.owners, p)
		}
	}

	if len(patterns) == 0 {
		d.matcher = nil
		return
	}
	d.matcher = ahocorasick.NewMatcher(patterns)
}

// Detect returns the profile with the most keyword hits in the text, or nil
// when nothing matches. Ties keep the first profile in registration order.
func (d *Detector) Detect(text string) *Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.matcher == nil || text == "" {
		return nil
	}

	hits := d.matcher.Match([]byte(strings.ToUpper(text)))
	if len(hits) == 0 {
		return nil
	}

	counts := make(map[*Profile]int)
	for _, idx := range hits {
		if idx >= 0 && idx < len(d.owners) {
			counts[d.owners[idx]]++
		}
	}

	var best *Profile
	bestCount := 0
	for _, p := range d.profiles {
		if c := counts[p]; c > bestCount {
			best = p
			bestCount = c
		}
	}
	return best
}
