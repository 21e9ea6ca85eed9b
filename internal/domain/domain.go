package domain

import (
	"github.com/conceptbridge/conceptbridge-backend/internal/domain/alignment"
	"github.com/conceptbridge/conceptbridge-backend/internal/domain/dictionary"
	"github.com/conceptbridge/conceptbridge-backend/internal/domain/user"
	"github.com/conceptbridge/conceptbridge-backend/internal/domain/vocab"
)

const (
	VoteApprove   = alignment.VoteApprove
	VoteReject    = alignment.VoteReject
	VoteUncertain = alignment.VoteUncertain

	FormatGeneric            = alignment.FormatGeneric
	FormatSourceToConceptMap = alignment.FormatSourceToConceptMap
	FormatUsagi              = alignment.FormatUsagi
	FormatArchive            = alignment.FormatArchive
)

type User = user.User

type Concept = vocab.Concept
type ConceptAncestor = vocab.ConceptAncestor

type GeneralConcept = dictionary.GeneralConcept
type DictionaryMappingEntry = dictionary.MappingEntry
type CustomConcept = dictionary.CustomConcept

type Alignment = alignment.Alignment
type SourceConceptRow = alignment.SourceConceptRow
type Mapping = alignment.Mapping
type Import = alignment.Import
type Evaluation = alignment.Evaluation
type Comment = alignment.Comment

func ValidVote(v string) bool { return alignment.ValidVote(v) }
