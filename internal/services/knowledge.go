package services

import "context"

// KnowledgeSource supplies excerpts from the sleep-knowledge base. The actual
// vector-search implementation lives outside this service; generation only
// needs a handful of relevant passages per prompt.
type KnowledgeSource interface {
	Excerpts(ctx context.Context, query string, limit int) ([]string, error)
}

type noKnowledge struct{}

// NewNoKnowledge returns a KnowledgeSource that never has anything to say.
// Prompts built against it carry an explicit "no external knowledge" marker.
func NewNoKnowledge() KnowledgeSource {
	return noKnowledge{}
}

func (noKnowledge) Excerpts(ctx context.Context, query string, limit int) ([]string, error) {
	return nil, nil
}
