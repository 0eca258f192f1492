package canvas

import (
	"time"

	"github.com/pixelcanvas/engine/internal/retry"
)

// Option configures the placement service.
type Option func(*Service)

// WithClock substitutes the time source, for tests that simulate idle gaps
// and epoch boundaries.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithRetryOptions overrides the conflict-retry policy. The classifier is
// preserved unless the given options set one.
func WithRetryOptions(opts retry.Options) Option {
	return func(s *Service) {
		if opts.Classifier == nil {
			opts.Classifier = s.retryOpts.Classifier
		}
		s.retryOpts = opts
	}
}
