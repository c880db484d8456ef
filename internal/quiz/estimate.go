package quiz

import (
	"github.com/wolfman30/cleaning-quiz-platform/internal/pricing"
	"github.com/wolfman30/cleaning-quiz-platform/internal/validation"
)

// EstimateOptions tunes the heuristics used for the live estimate. They are
// product defaults, not part of the quote.
type EstimateOptions struct {
	// WindowsPerRoom converts the room count into a window count when the
	// customer asked for window cleaning as an extra.
	WindowsPerRoom int
}

// DefaultEstimateOptions returns the heuristics used on the site.
func DefaultEstimateOptions() EstimateOptions {
	return EstimateOptions{WindowsPerRoom: 2}
}

// PricingParams projects answers onto engine input. It returns nil when the
// area is unanswered or outside the accepted bound.
func PricingParams(a AnswerSet, opts EstimateOptions) *pricing.Params {
	if a.Area < 1 || a.Area > validation.MaxArea {
		return nil
	}
	if opts.WindowsPerRoom <= 0 {
		opts.WindowsPerRoom = DefaultEstimateOptions().WindowsPerRoom
	}

	p := &pricing.Params{
		ServiceType: a.Service.PricingType(),
		AreaSqm:     float64(a.Area),
		HasBalcony:  a.Extras.Has(ExtraBalcony),
	}
	if p.ServiceType != pricing.ServiceWindow && a.Extras.Has(ExtraWindows) {
		rooms := max(a.Rooms, 1)
		windows := rooms * opts.WindowsPerRoom
		p.Windows = &windows
	}
	return p
}
