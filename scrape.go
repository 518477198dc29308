package ukbtab

import (
	"regexp"
	"strconv"
)

// codingRefPattern matches the coding reference embedded in a field
// description: "Uses data-coding <id> comprises <count> <kind>-valued".
// The comprises clause is optional; descriptions may state only the id.
var codingRefPattern = regexp.MustCompile(`Uses data-coding (\d+)(?: comprises (\d+) (\w+)-valued)?`)

// codingRef is the structured form of a description's coding reference.
type codingRef struct {
	ID      string
	Members *int
	Kind    ValueKind
}

// parseCodingRef scrapes the coding reference out of a field description.
// It reports false when the description references no coding. A reference
// without a comprises clause yields nil Members and an empty Kind.
func parseCodingRef(description string) (codingRef, bool) {
	m := codingRefPattern.FindStringSubmatch(description)
	if m == nil {
		return codingRef{}, false
	}

	ref := codingRef{ID: m[1]}

	if m[2] != "" {
		members, err := strconv.Atoi(m[2])
		if err == nil {
			ref.Members = &members
		}
	}

	if m[3] != "" {
		ref.Kind = ValueKind(m[3])
	}

	return ref, true
}
