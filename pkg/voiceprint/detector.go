package voiceprint

// Detector classifies a run of per-window voice hashes as a single
// speaker, an overlap of two speakers, or unknown.
//
// # Algorithm
//
// The detector keeps a circular buffer of the last N hashes. On each
// Feed() call it counts how many distinct hashes appear:
//
//   - 1 dominant hash with high ratio → StatusSingle
//   - 2 dominant hashes → StatusOverlap
//   - 3+ hashes or insufficient data → StatusUnknown
//
// Confidence is the share of the window covered by the dominant hash
// (Single) or by the top two hashes (Overlap). Ties go to the hash seen
// first in the window, so results are deterministic.
type Detector struct {
	window []string // circular buffer of recent hashes
	pos    int      // next write position
	filled int      // number of slots filled (up to len(window))

	// minRatio is the minimum fraction of the window that the dominant
	// hash must occupy to be considered stable. Default: 0.6.
	minRatio float32
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithWindowSize sets the detector window size (default 5).
func WithWindowSize(n int) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.window = make([]string, n)
		}
	}
}

// WithMinRatio sets the minimum dominance ratio for Single detection
// (default 0.6). Must be in (0, 1].
func WithMinRatio(r float32) DetectorOption {
	return func(d *Detector) {
		if r > 0 && r <= 1 {
			d.minRatio = r
		}
	}
}

// NewDetector creates a Detector with the given options.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		window:   make([]string, 5),
		minRatio: 0.6,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed adds a hash to the window and returns the current speaker state.
// Returns nil while fewer than 2 hashes have been seen.
func (d *Detector) Feed(hash string) *SpeakerChunk {
	d.window[d.pos] = hash
	d.pos = (d.pos + 1) % len(d.window)
	if d.filled < len(d.window) {
		d.filled++
	}
	if d.filled < 2 {
		return nil
	}

	// Count in window order so ties resolve to the earliest hash.
	var order []string
	counts := make(map[string]int, 4)
	for i := range d.filled {
		h := d.window[(d.pos-d.filled+i+len(d.window))%len(d.window)]
		if counts[h] == 0 {
			order = append(order, h)
		}
		counts[h]++
	}

	var top1, top2 string
	var c1, c2 int
	for _, h := range order {
		switch c := counts[h]; {
		case c > c1:
			top2, c2 = top1, c1
			top1, c1 = h, c
		case c > c2:
			top2, c2 = h, c
		}
	}

	total := float32(d.filled)
	if float32(c1)/total >= d.minRatio {
		return &SpeakerChunk{
			Status:     StatusSingle,
			Speaker:    VoiceLabel(top1),
			Candidates: []string{VoiceLabel(top1)},
			Confidence: float32(c1) / total,
		}
	}
	if c2 > 0 {
		if combined := float32(c1+c2) / total; combined >= d.minRatio {
			return &SpeakerChunk{
				Status:     StatusOverlap,
				Speaker:    VoiceLabel(top1),
				Candidates: []string{VoiceLabel(top1), VoiceLabel(top2)},
				Confidence: combined,
			}
		}
	}
	return &SpeakerChunk{
		Status:     StatusUnknown,
		Confidence: float32(c1) / total,
	}
}
