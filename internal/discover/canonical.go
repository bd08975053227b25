package discover

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// CanonicalPolicy controls how two catalog rows are recognized as the same
// logical framework. The source data carries names polluted with trailing
// disambiguation numbers ("IT Strategy Framework 4", "... 5", "... 8"); the
// policy strips those while leaving semantically meaningful content alone.
//
// The exact stripping rule is deliberately configurable rather than
// hard-coded: a trailing number is occasionally meaningful, and callers that
// know their data can tighten or relax the policy.
type CanonicalPolicy struct {
	// StripTrailingNumber removes one trailing bare-integer token from the
	// name ("Framework 4" → "Framework") unless the number is all there is.
	StripTrailingNumber bool

	// UseCasePrefixLen is how many runes of the folded use case participate
	// in the canonical key. Two rows collapse only when both the cleaned
	// name and this prefix agree, which prevents false merges of genuinely
	// distinct frameworks sharing a name stem.
	UseCasePrefixLen int
}

// DefaultCanonicalPolicy returns the policy used by the engine unless
// overridden.
func DefaultCanonicalPolicy() CanonicalPolicy {
	return CanonicalPolicy{
		StripTrailingNumber: true,
		UseCasePrefixLen:    80,
	}
}

// CanonicalKey identifies a logical framework independent of row id.
type CanonicalKey struct {
	Name          string
	UseCasePrefix string
}

var keyFolder = cases.Fold()

// CleanName returns name with the trailing disambiguation number removed,
// per the policy. Leading structural labels ("Layer 3:") are kept: they are
// part of the name, only the trailing suffix is pollution.
func (p CanonicalPolicy) CleanName(name string) string {
	name = collapseSpaces(name)
	if !p.StripTrailingNumber {
		return name
	}
	i := strings.LastIndexByte(name, ' ')
	if i < 0 {
		return name
	}
	if _, err := strconv.Atoi(name[i+1:]); err != nil {
		return name
	}
	return name[:i]
}

// Key computes the canonical key for a record's name and use case. It is a
// pure function of its inputs so dedup policy stays independently testable.
func (p CanonicalPolicy) Key(name, useCase string) CanonicalKey {
	cleaned := keyFolder.String(p.CleanName(name))
	uc := keyFolder.String(collapseSpaces(useCase))
	if p.UseCasePrefixLen > 0 {
		if r := []rune(uc); len(r) > p.UseCasePrefixLen {
			uc = string(r[:p.UseCasePrefixLen])
		}
	}
	return CanonicalKey{Name: cleaned, UseCasePrefix: uc}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
