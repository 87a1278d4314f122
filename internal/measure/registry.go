package measure

import (
	"context"
	"encoding"
	"fmt"
	"slices"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/montecarlo/internal/model"
	"github.com/seantiz/montecarlo/internal/reduce"
	"github.com/seantiz/montecarlo/internal/timer"
)

type entry[S model.Sign] struct {
	id          string
	name        string
	measure     Measure[S]
	enableTimer bool

	timer    *timer.Timer
	restored float64
	count    uint64

	calls   prometheus.Counter
	seconds prometheus.Counter
}

func (e *entry[S]) seconds64() float64 {
	return e.restored + e.timer.Seconds()
}

// Registry holds the measures of one engine in registration order.
// It is not safe for concurrent use; the engine loop owns it.
type Registry[S model.Sign] struct {
	entries  []*entry[S]
	byName   map[string]*entry[S]
	byHandle map[string]*entry[S]
}

// NewRegistry creates an empty measure registry.
func NewRegistry[S model.Sign]() *Registry[S] {
	return &Registry[S]{
		byName:   make(map[string]*entry[S]),
		byHandle: make(map[string]*entry[S]),
	}
}

// Insert registers m under name. When enableTimer is set, the time spent in
// Accumulate is recorded for the measure.
func (r *Registry[S]) Insert(m Measure[S], name string, enableTimer bool) (Handle, error) {
	if _, ok := r.byName[name]; ok {
		return Handle{}, fmt.Errorf("measure %q: %w", name, model.ErrDuplicateName)
	}
	e := &entry[S]{
		id:          model.NewID(),
		name:        name,
		measure:     m,
		enableTimer: enableTimer,
		timer:       timer.New(),
		calls:       measureAccumulationsTotal.WithLabelValues(name),
		seconds:     measureSecondsTotal.WithLabelValues(name),
	}
	r.entries = append(r.entries, e)
	r.byName[name] = e
	r.byHandle[e.id] = e
	return Handle{id: e.id}, nil
}

// Remove detaches the measure identified by h. Its timing is dropped.
func (r *Registry[S]) Remove(h Handle) error {
	e, ok := r.byHandle[h.id]
	if !ok {
		return fmt.Errorf("handle %q: %w", h.id, model.ErrUnknownHandle)
	}
	delete(r.byHandle, h.id)
	delete(r.byName, e.name)
	r.entries = slices.DeleteFunc(r.entries, func(x *entry[S]) bool { return x == e })
	return nil
}

// Len returns the number of registered measures.
func (r *Registry[S]) Len() int { return len(r.entries) }

// Names returns the measure names in registration order.
func (r *Registry[S]) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Accumulate calls every measure with sign, in registration order.
func (r *Registry[S]) Accumulate(sign S) error {
	for _, e := range r.entries {
		if e.enableTimer {
			before := e.timer.Seconds()
			e.timer.Start()
			err := e.measure.Accumulate(sign)
			e.timer.Stop()
			e.seconds.Add(e.timer.Seconds() - before)
			if err != nil {
				return fmt.Errorf("measure %q accumulate: %w", e.name, err)
			}
		} else if err := e.measure.Accumulate(sign); err != nil {
			return fmt.Errorf("measure %q accumulate: %w", e.name, err)
		}
		e.count++
		e.calls.Inc()
	}
	return nil
}

// CollectResults lets every measure reduce its estimator across comm.
func (r *Registry[S]) CollectResults(ctx context.Context, comm reduce.Communicator) error {
	for _, e := range r.entries {
		if err := e.measure.CollectResults(ctx, comm); err != nil {
			return fmt.Errorf("measure %q collect: %w", e.name, err)
		}
	}
	return nil
}

// Timings maps every measure name to the seconds spent accumulating it.
// Measures registered without a timer report zero.
func (r *Registry[S]) Timings() map[string]float64 {
	out := make(map[string]float64, len(r.entries))
	for _, e := range r.entries {
		out[e.name] = e.seconds64()
	}
	return out
}

// Stats snapshots every measure, including the serialized accumulator of
// measures implementing encoding.BinaryMarshaler.
func (r *Registry[S]) Stats() ([]model.MeasureStats, error) {
	out := make([]model.MeasureStats, len(r.entries))
	for i, e := range r.entries {
		out[i] = model.MeasureStats{
			Name:           e.name,
			Count:          e.count,
			ElapsedSeconds: e.seconds64(),
		}
		if m, ok := e.measure.(encoding.BinaryMarshaler); ok {
			state, err := m.MarshalBinary()
			if err != nil {
				return nil, fmt.Errorf("marshal measure %q: %w", e.name, err)
			}
			out[i].State = state
		}
	}
	return out, nil
}

// Restore loads a snapshot produced by Stats. The set of names must match the
// registered measures exactly.
func (r *Registry[S]) Restore(stats []model.MeasureStats) error {
	if len(stats) != len(r.entries) {
		return fmt.Errorf("%d measures in checkpoint, %d registered: %w", len(stats), len(r.entries), model.ErrCheckpointMismatch)
	}
	for _, st := range stats {
		if _, ok := r.byName[st.Name]; !ok {
			return fmt.Errorf("measure %q not registered: %w", st.Name, model.ErrCheckpointMismatch)
		}
	}
	for _, st := range stats {
		e := r.byName[st.Name]
		e.count = st.Count
		e.timer.Reset()
		e.restored = st.ElapsedSeconds
		if len(st.State) == 0 {
			continue
		}
		if m, ok := e.measure.(encoding.BinaryUnmarshaler); ok {
			if err := m.UnmarshalBinary(st.State); err != nil {
				return fmt.Errorf("unmarshal measure %q: %w", st.Name, err)
			}
		}
	}
	return nil
}
