package pipeline

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// pipelineMetrics holds the otel counters for pipeline outcomes. With no
// meter provider installed these are no-ops.
type pipelineMetrics struct {
	dumpsProcessed    metric.Int64Counter
	thoughtsPersisted metric.Int64Counter
	itemsSkipped      metric.Int64Counter
	embedFailures     metric.Int64Counter
}

func newPipelineMetrics() *pipelineMetrics {
	meter := otel.Meter("github.com/thebtf/clearhead/internal/pipeline")

	dumps, _ := meter.Int64Counter("clearhead.dumps.processed",
		metric.WithDescription("Mind dumps that reached the terminal processed state"))
	thoughts, _ := meter.Int64Counter("clearhead.thoughts.persisted",
		metric.WithDescription("Thoughts written to storage, subtask children included"))
	skipped, _ := meter.Int64Counter("clearhead.items.skipped",
		metric.WithDescription("Extracted items dropped by validation or persistence failure"))
	embeds, _ := meter.Int64Counter("clearhead.embeddings.failed",
		metric.WithDescription("Embedding attempts that produced no stored vector"))

	return &pipelineMetrics{
		dumpsProcessed:    dumps,
		thoughtsPersisted: thoughts,
		itemsSkipped:      skipped,
		embedFailures:     embeds,
	}
}
