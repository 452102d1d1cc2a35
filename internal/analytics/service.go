package analytics

import (
	"context"
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// Summary is the result of one summary request. It encodes as
// {"<kind plural>_by_category": chart}.
type Summary struct {
	Kind        core.Kind
	Interval    Interval
	Calculation CalculationType
	From, To    core.Date
	Chart       Chart
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Chart{s.Kind.Plural() + "_by_category": s.Chart})
}

// Service computes summaries for one store.
type Service struct {
	store Store
	now   func() time.Time
}

type Option func(*Service)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Summarize validates the interval and calculation type before touching the
// store, then builds the series for the window ending today and renders it.
func (s *Service) Summarize(ctx context.Context, ownerID int64, kind core.Kind, intervalKey, calculation string) (Summary, error) {
	if !kind.Valid() {
		return Summary{}, core.ErrUnknownKind
	}
	iv, err := ResolveInterval(intervalKey)
	if err != nil {
		return Summary{}, err
	}
	calc, err := ParseCalculationType(calculation)
	if err != nil {
		return Summary{}, err
	}

	from, to := iv.Window(core.DateOf(s.now().UTC()))
	rows, err := BuildSeries(ctx, s.store, ownerID, kind, from, to)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{Kind: kind, Interval: iv, Calculation: calc, From: from, To: to}
	if calc == Total {
		out.Chart = Assemble(Pivot(rows, iv.Granularity))
		return out, nil
	}
	values, err := Aggregate(rows, calc)
	if err != nil {
		return Summary{}, err
	}
	out.Chart = AssembleAggregates(values, calc)
	return out, nil
}
