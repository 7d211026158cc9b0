package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// RelationType classifies a directed relation between two knowledge items
type RelationType string

const (
	RelationRelated     RelationType = "related"
	RelationParent      RelationType = "parent"
	RelationChild       RelationType = "child"
	RelationSimilar     RelationType = "similar"
	RelationContradicts RelationType = "contradicts"
)

// RelationTypes lists all valid relation types
func RelationTypes() []RelationType {
	return []RelationType{
		RelationRelated,
		RelationParent,
		RelationChild,
		RelationSimilar,
		RelationContradicts,
	}
}

// Validate checks if the RelationType is one of the known values
func (r RelationType) Validate() error {
	for _, t := range RelationTypes() {
		if r == t {
			return nil
		}
	}
	return goerr.New("invalid relation type", goerr.V("relationType", r))
}

// String returns the string representation of RelationType
func (r RelationType) String() string {
	return string(r)
}
