/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: capabilities.go
Description: Narrow capability interfaces over learning tables. Algorithms depend on
the capabilities they use, so table variants and offline constructions can be swapped
without touching the learner loop.
*/

package table

import "github.com/kleascm/regular-learner/pkg/automaton"

// Fillable tables can request the answers they are missing
type Fillable interface {
	Fill() bool
}

// ClosureCheckable tables can detect and repair closedness defects
type ClosureCheckable interface {
	IsClosed() bool
	Close() (bool, error)
}

// ConsistencyCheckable tables can detect and repair consistency defects
type ConsistencyCheckable interface {
	IsConsistent() bool
	MakeConsistent() (bool, error)
}

// ConjectureDerivable can produce a hypothesis automaton
type ConjectureDerivable interface {
	DeriveConjecture() (*automaton.Conjecture, error)
}

// Engine is the full observation table contract
type Engine interface {
	Fillable
	ClosureCheckable
	ConsistencyCheckable
	ConjectureDerivable
}

var _ Engine = (*Table)(nil)
