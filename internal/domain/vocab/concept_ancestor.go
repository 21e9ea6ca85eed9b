package vocab

// ConceptAncestor is the precomputed hierarchy closure: one row per
// (ancestor, descendant) pair, including the identity pair at level 0.
type ConceptAncestor struct {
	AncestorConceptID      int64 `gorm:"column:ancestor_concept_id;primaryKey" json:"ancestor_concept_id"`
	DescendantConceptID    int64 `gorm:"column:descendant_concept_id;primaryKey;index" json:"descendant_concept_id"`
	MinLevelsOfSeparation  int   `gorm:"column:min_levels_of_separation;not null" json:"min_levels_of_separation"`
	MaxLevelsOfSeparation  int   `gorm:"column:max_levels_of_separation;not null" json:"max_levels_of_separation"`
}

func (ConceptAncestor) TableName() string { return "concept_ancestor" }
