package tracing

import (
	"context"

	"github.com/sarchlab/pdevs/datarecording"
)

// TraceReader reads the tables written by a DBTracer.
type TraceReader struct {
	reader datarecording.DataReader
}

// NewTraceReader maps the trace tables of a reader.
func NewTraceReader(reader datarecording.DataReader) *TraceReader {
	reader.MapTable(transitionTable, TransitionRecord{})
	reader.MapTable(routingTable, RoutingRecord{})

	return &TraceReader{reader: reader}
}

// A TraceQuery selects trace records. The zero value selects everything.
type TraceQuery struct {
	// Model is the full name of a model. Routings are selected by their
	// destination.
	Model string

	// Limit caps the number of records returned, 0 for no cap.
	Limit int
}

// Transitions returns the transitions in the order they happened, and the
// number of transitions that match regardless of the limit.
func (r *TraceReader) Transitions(
	ctx context.Context,
	q TraceQuery,
) ([]TransitionRecord, int, error) {
	params := datarecording.QueryParams{OrderBy: "Time, rowid", Limit: q.Limit}
	if q.Model != "" {
		params.Where = "Model = ?"
		params.Args = []any{q.Model}
	}

	results, total, err := r.reader.Query(ctx, transitionTable, params)
	if err != nil {
		return nil, 0, err
	}

	return records[TransitionRecord](results), total, nil
}

// Routings returns the deliveries in the order they happened, and the number
// of deliveries that match regardless of the limit.
func (r *TraceReader) Routings(
	ctx context.Context,
	q TraceQuery,
) ([]RoutingRecord, int, error) {
	params := datarecording.QueryParams{OrderBy: "Time, rowid", Limit: q.Limit}
	if q.Model != "" {
		params.Where = "instr(Dst, ?) = 1"
		params.Args = []any{q.Model + "."}
	}

	results, total, err := r.reader.Query(ctx, routingTable, params)
	if err != nil {
		return nil, 0, err
	}

	return records[RoutingRecord](results), total, nil
}

func records[T any](results []any) []T {
	out := make([]T, len(results))
	for i, r := range results {
		out[i] = *r.(*T)
	}

	return out
}
