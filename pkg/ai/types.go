package ai

import "context"

// CategoryCount is one aggregated bucket of neighborhood activity.
type CategoryCount struct {
	Category string
	Count    int
}

// TrendInput contains the aggregated activity handed to the summarizer.
type TrendInput struct {
	RadiusKm float64
	Requests []CategoryCount
	Offers   []CategoryCount
}

// TrendResult is the narrative produced by the summarizer.
type TrendResult struct {
	Summary string                 `json:"summary"`
	Raw     map[string]interface{} `json:"raw,omitempty"`
}

// Summarizer describes an AI model capable of turning activity counts into a
// short neighborhood summary.
type Summarizer interface {
	Summarize(ctx context.Context, input TrendInput) (TrendResult, error)
}
