package llm

import (
	"fmt"
	"strings"

	"github.com/consultkit/fwassist/internal/catalog"
	"github.com/consultkit/fwassist/internal/discover"
)

const discoverySystem = `You are a business consultant assistant. The user describes a
client situation or asks about frameworks; you are given the most relevant frameworks
from their proprietary library. Present them as numbered options, briefly explain why
each is relevant, and suggest a starting point. Be concise - they may be in a live
meeting. Only reference the frameworks provided; never invent one.`

const detailsSystem = `You are a business consultant assistant. Present the given
framework clearly: what it is and when to use it, key components, prerequisites, and
who should use it given its difficulty level. Only use the fields provided.`

const comparisonSystem = `You are a business consultant assistant. Compare the two
frameworks using only the fields provided: what each is for, where they differ, when
a consultant would choose one over the other, and whether they combine well. Be
concise and practical.`

// DiscoveryPrompt renders a discovery query and its results into the user
// prompt for answer phrasing.
func DiscoveryPrompt(query string, results []discover.Result) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "User request: %s\n\nMatching frameworks (%d):\n", query, len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s (similarity %.2f)\n", i+1, r.CanonicalName, r.Score)
		if r.Record.UseCase != "" {
			fmt.Fprintf(&b, "   Use case: %s\n", r.Record.UseCase)
		}
		if r.Record.BusinessDomains != "" {
			fmt.Fprintf(&b, "   Domains: %s\n", r.Record.BusinessDomains)
		}
		if r.Record.DifficultyLevel != "" {
			fmt.Fprintf(&b, "   Difficulty: %s\n", r.Record.DifficultyLevel)
		}
	}
	if len(results) == 0 {
		b.WriteString("(none above the similarity threshold)\n")
	}
	return discoverySystem, b.String()
}

// DetailsPrompt renders one framework's full fields for the details view.
func DetailsPrompt(rec catalog.Record) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Framework requested: %s\n\nFields:\n", rec.Name)
	writeRecordFields(&b, rec)
	return detailsSystem, b.String()
}

// ComparisonPrompt renders two frameworks side by side for the comparison
// view.
func ComparisonPrompt(a, b catalog.Record) (system, user string) {
	var bld strings.Builder
	bld.WriteString("Compare these two frameworks:\n")
	for _, rec := range []catalog.Record{a, b} {
		fmt.Fprintf(&bld, "\n## %s\n", rec.Name)
		writeRecordFields(&bld, rec)
	}
	return comparisonSystem, bld.String()
}

// writeRecordFields appends the record's non-empty fields in a fixed order,
// keeping prompts deterministic for the same record.
func writeRecordFields(b *strings.Builder, rec catalog.Record) {
	fields := []struct{ label, value string }{
		{"Type", rec.Type},
		{"Business domains", rec.BusinessDomains},
		{"Difficulty", rec.DifficultyLevel},
		{"Use case", rec.UseCase},
		{"Description", rec.Description},
		{"Diagnostic questions", rec.DiagnosticQuestions},
		{"Red flags", rec.RedFlagIndicators},
		{"Levers", rec.Levers},
		{"Related frameworks", rec.RelatedFrameworks},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		fmt.Fprintf(b, "%s: %s\n", f.label, f.value)
	}
}
