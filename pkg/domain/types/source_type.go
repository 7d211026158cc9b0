package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// SourceType identifies the kind of entity an embedding record points at
type SourceType string

const (
	SourceTypeKnowledgeItem SourceType = "knowledge_item"
	SourceTypeMessage       SourceType = "message"
	SourceTypeDocument      SourceType = "document"
)

// Validate checks if the SourceType is one of the known values
func (s SourceType) Validate() error {
	switch s {
	case SourceTypeKnowledgeItem, SourceTypeMessage, SourceTypeDocument:
		return nil
	default:
		return goerr.New("invalid source type", goerr.V("sourceType", s))
	}
}

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}
