package fills

import "github.com/verte-zerg/fuelbook/internal/model"

const (
	// MinSamples is the number of full fills needed before suggestions are made.
	MinSamples = 3
	// DefaultPartialRatio marks a candidate as partial below this share of the
	// reference volume.
	DefaultPartialRatio = 0.75
)

// Classifier estimates a typical full refill from a vehicle's history.
type Classifier struct {
	minSamples   int
	partialRatio float64
	samples      int
	sum          float64
}

// ClassifierOption customises a Classifier.
type ClassifierOption func(*Classifier)

// WithMinSamples overrides MinSamples. Values below 1 are ignored.
func WithMinSamples(n int) ClassifierOption {
	return func(c *Classifier) {
		if n >= 1 {
			c.minSamples = n
		}
	}
}

// WithPartialRatio overrides DefaultPartialRatio. Values outside (0, 1] are ignored.
func WithPartialRatio(r float64) ClassifierOption {
	return func(c *Classifier) {
		if r > 0 && r <= 1 {
			c.partialRatio = r
		}
	}
}

// WithConfig applies a ClassifierConfig.
func WithConfig(cfg model.ClassifierConfig) ClassifierOption {
	return func(c *Classifier) {
		WithMinSamples(cfg.MinSamples)(c)
		WithPartialRatio(cfg.PartialRatio)(c)
	}
}

// NewClassifier builds a classifier from the full fills in history.
func NewClassifier(history []model.FillRecord, opts ...ClassifierOption) Classifier {
	c := Classifier{minSamples: MinSamples, partialRatio: DefaultPartialRatio}
	for _, opt := range opts {
		opt(&c)
	}
	for _, rec := range history {
		if rec.Partial {
			continue
		}
		c.samples++
		c.sum += rec.Volume
	}
	return c
}

// Samples returns how many full fills the classifier saw.
func (c Classifier) Samples() int {
	return c.samples
}

// Required returns how many full fills are needed before suggestions start.
func (c Classifier) Required() int {
	return c.minSamples
}

// CanClassify reports whether there is enough history to make suggestions.
func (c Classifier) CanClassify() bool {
	return c.samples >= c.minSamples
}

// ReferenceVolume is the mean volume of every full fill in history.
func (c Classifier) ReferenceVolume() (float64, bool) {
	if !c.CanClassify() {
		return 0, false
	}
	return c.sum / float64(c.samples), true
}

// Suggest reports whether a fill of the given volume looks partial. ok is
// false when classification is disabled; callers must then leave the flag to
// the user.
func (c Classifier) Suggest(volume float64) (partial bool, ok bool) {
	ref, ok := c.ReferenceVolume()
	if !ok || ref <= 0 {
		return false, false
	}
	return volume < ref*c.partialRatio, true
}
