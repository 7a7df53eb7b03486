// Package lore provides a minimal public API for embedding the memory
// substrate in other Go programs.
//
// Most integrations should shell out to the lore CLI; this package exports
// only the essential types and the engine entry point for callers that want
// the stores programmatically.
package lore

import (
	"github.com/lorehq/lore/internal/engine"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/search"
	"github.com/lorehq/lore/internal/types"
)

// Engine wires every store against one data root.
type Engine = engine.Engine

// RecordResult is what Engine.Record returns: the enriched decision plus
// any contradiction warnings raised against prior decisions.
type RecordResult = engine.RecordResult

// Root resolves all store file locations under one data directory.
type Root = paths.Root

// SearchOptions selects the retrieval mode and filters for Engine.Search.
type SearchOptions = search.Options

// New opens the substrate at dataRoot ("" resolves the default root).
func New(dataRoot string) (*Engine, error) {
	root, err := paths.Resolve(dataRoot)
	if err != nil {
		return nil, err
	}
	return engine.New(root), nil
}

// Core types
type (
	Decision    = types.Decision
	Pattern     = types.Pattern
	AntiPattern = types.AntiPattern
	Failure     = types.Failure
	Observation = types.Observation
	Node        = types.Node
	Edge        = types.Edge
	Relation    = types.Relation
	Session     = types.Session
	Handoff     = types.Handoff
	Goal        = types.Goal
	Outcome     = types.Outcome
	NodeType    = types.NodeType
)

// Outcome constants
const (
	OutcomePending    = types.OutcomePending
	OutcomeSuccessful = types.OutcomeSuccessful
	OutcomeRevised    = types.OutcomeRevised
	OutcomeAbandoned  = types.OutcomeAbandoned
)

// NodeType constants
const (
	NodeConcept  = types.NodeConcept
	NodeFile     = types.NodeFile
	NodePattern  = types.NodePattern
	NodeLesson   = types.NodeLesson
	NodeDecision = types.NodeDecision
	NodeSession  = types.NodeSession
	NodeProject  = types.NodeProject
)

// Relation constants
const (
	RelRelatesTo   = types.RelRelatesTo
	RelSupersedes  = types.RelSupersedes
	RelContradicts = types.RelContradicts
	RelDependsOn   = types.RelDependsOn
	RelImplements  = types.RelImplements
	RelLearnedFrom = types.RelLearnedFrom
	RelAffects     = types.RelAffects
)

// Search mode constants
const (
	ModeFTS      = search.ModeFTS
	ModeSemantic = search.ModeSemantic
	ModeHybrid   = search.ModeHybrid
	ModeGraph    = search.ModeGraph
)
