package pipeline

// Pipeline progress stages, in the order a dump moves through them.
const (
	StageQueued           = "queued"
	StageTranscribed      = "transcribed"
	StageExtracted        = "extracted"
	StageThoughtPersisted = "thought_persisted"
	StageItemSkipped      = "item_skipped"
	StageProcessed        = "processed"
)

// Event is one pipeline progress notification, consumed by the SSE stream.
type Event struct {
	DumpID    int64  `json:"dump_id"`
	DumpUID   string `json:"dump_uid"`
	Stage     string `json:"stage"`
	ThoughtID int64  `json:"thought_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Notifier receives pipeline events. Implementations must not block.
type Notifier interface {
	Publish(e Event)
}
