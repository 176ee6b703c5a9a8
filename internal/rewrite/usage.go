package rewrite

import (
	"sync"
	"time"

	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// Aggregator collects model-call accounting per document and per run. The
// pipeline reports into it through the UsageSink interface; nothing reaches
// into ambient state.
type Aggregator struct {
	mu     sync.Mutex
	run    usageBucket
	perDoc map[string]*usageBucket
}

type usageBucket struct {
	requests         int
	promptTokens     int
	completionTokens int
	totalTokens      int
	latencySum       time.Duration
}

var _ ports.UsageSink = (*Aggregator)(nil)

// NewAggregator returns an empty usage aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{perDoc: map[string]*usageBucket{}}
}

// Record folds one model call into the run and per-document totals.
func (a *Aggregator) Record(usage domain.ModelUsage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.run.add(usage)
	if usage.DocumentID != "" {
		bucket, ok := a.perDoc[usage.DocumentID]
		if !ok {
			bucket = &usageBucket{}
			a.perDoc[usage.DocumentID] = bucket
		}
		bucket.add(usage)
	}
}

// Run reports the aggregate across every recorded call.
func (a *Aggregator) Run() domain.UsageAggregate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run.aggregate()
}

// Document reports the aggregate for one document ID.
func (a *Aggregator) Document(id string) domain.UsageAggregate {
	a.mu.Lock()
	defer a.mu.Unlock()
	if bucket, ok := a.perDoc[id]; ok {
		return bucket.aggregate()
	}
	return domain.UsageAggregate{}
}

// Reset clears all totals, typically between orchestrator runs.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.run = usageBucket{}
	a.perDoc = map[string]*usageBucket{}
}

func (b *usageBucket) add(usage domain.ModelUsage) {
	b.requests++
	b.promptTokens += usage.PromptTokens
	b.completionTokens += usage.CompletionTokens
	b.totalTokens += usage.TotalTokens
	b.latencySum += usage.Latency
}

func (b *usageBucket) aggregate() domain.UsageAggregate {
	agg := domain.UsageAggregate{
		Requests:         b.requests,
		PromptTokens:     b.promptTokens,
		CompletionTokens: b.completionTokens,
		TotalTokens:      b.totalTokens,
	}
	if b.requests > 0 {
		agg.AvgLatency = b.latencySum / time.Duration(b.requests)
	}
	return agg
}
