package transport

import (
	"strings"
	"sync"

	"github.com/testdriverai/go-sdk/pkg/core"
)

// Aggregator folds stream events into a core.AggregateResult as they arrive.
//
// For each event type, string data is concatenated while every contribution
// is a string; once any non-string arrives the type becomes an ordered list
// of all its data values. A list of exactly one element collapses to that
// element in the result.
type Aggregator struct {
	mu     sync.Mutex
	order  []string
	values map[string]*accumulation
}

type accumulation struct {
	allStrings bool
	text       strings.Builder
	items      []any
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		values: make(map[string]*accumulation),
	}
}

// Add folds one event into the aggregate.
func (a *Aggregator) Add(event core.StreamEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acc, ok := a.values[event.Type]
	if !ok {
		acc = &accumulation{allStrings: true}
		a.values[event.Type] = acc
		a.order = append(a.order, event.Type)
	}

	acc.items = append(acc.items, event.Data)
	if s, isString := event.Data.(string); isString && acc.allStrings {
		acc.text.WriteString(s)
		return
	}
	acc.allStrings = false
}

// Result returns the aggregate built so far. The returned map is a fresh copy.
func (a *Aggregator) Result() core.AggregateResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := make(core.AggregateResult, len(a.values))
	for _, eventType := range a.order {
		acc := a.values[eventType]
		switch {
		case acc.allStrings:
			result[eventType] = acc.text.String()
		case len(acc.items) == 1:
			result[eventType] = acc.items[0]
		default:
			result[eventType] = append([]any(nil), acc.items...)
		}
	}
	return result
}

// Types returns the event types seen so far in first-arrival order.
func (a *Aggregator) Types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.order...)
}

// Fold aggregates a complete, ordered slice of events.
func Fold(events []core.StreamEvent) core.AggregateResult {
	agg := NewAggregator()
	for _, event := range events {
		agg.Add(event)
	}
	return agg.Result()
}
