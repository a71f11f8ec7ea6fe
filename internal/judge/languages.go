package judge

import "strings"

// Judge0 language ids for the languages reference solutions and submissions
// may declare. Resolution is case-insensitive on the declared name.
var languageIDs = map[string]int{
	"C":          50,
	"CPP":        54,
	"CSHARP":     51,
	"GO":         60,
	"JAVA":       62,
	"JAVASCRIPT": 63,
	"KOTLIN":     78,
	"PHP":        68,
	"PYTHON":     71,
	"RUBY":       72,
	"RUST":       73,
	"SWIFT":      83,
	"TYPESCRIPT": 74,
}

// LanguageID resolves a declared language name to the judge's internal id.
func LanguageID(name string) (int, bool) {
	id, ok := languageIDs[strings.ToUpper(strings.TrimSpace(name))]
	return id, ok
}
