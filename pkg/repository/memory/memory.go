package memory

import (
	"github.com/support-lab/kotae/pkg/domain/interfaces"
	"github.com/support-lab/kotae/pkg/domain/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = model.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is the in-memory repository backend, used for development and
// tests. Each sub-repository is guarded by its own RWMutex; readers never
// observe an item mid-update because entries are copied on both write and
// read (last-writer-wins per item, no cross-item transactions).
type Memory struct {
	knowledge *knowledgeRepository
	message   *messageRepository
	embedding *embeddingRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		knowledge: newKnowledgeRepository(),
		message:   newMessageRepository(),
		embedding: newEmbeddingRepository(),
	}
}

func (m *Memory) Knowledge() interfaces.KnowledgeRepository {
	return m.knowledge
}

func (m *Memory) Message() interfaces.MessageRepository {
	return m.message
}

func (m *Memory) Embedding() interfaces.EmbeddingRepository {
	return m.embedding
}

func (m *Memory) Close() error {
	return nil
}
