package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Knowledge() KnowledgeRepository
	Message() MessageRepository
	Embedding() EmbeddingRepository

	Close() error
}
