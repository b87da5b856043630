package llm

import "strings"

// Grade is the reduced form of a judge's free-form output.
type Grade int

const (
	GradeAmbiguous Grade = iota
	GradeYes
	GradeNo
)

func (g Grade) String() string {
	switch g {
	case GradeYes:
		return "yes"
	case GradeNo:
		return "no"
	default:
		return "ambiguous"
	}
}

// ParseGrade reduces free-form judge output to a binary decision. The check
// is substring containment, case-insensitive: "yes" wins over "no" when
// both appear (judges are prompted to emit exactly one). Output that
// mentions neither is Ambiguous; callers must treat Ambiguous as a
// rejection so an ungrounded answer is retried rather than shipped.
func ParseGrade(s string) Grade {
	lowered := strings.ToLower(s)
	if strings.Contains(lowered, "yes") {
		return GradeYes
	}
	if strings.Contains(lowered, "no") {
		return GradeNo
	}
	return GradeAmbiguous
}

// Passed reports whether the grade is an unambiguous acceptance.
func (g Grade) Passed() bool {
	return g == GradeYes
}
