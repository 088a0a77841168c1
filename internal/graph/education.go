package graph

import (
	"regexp"
	"strings"
)

// Canonical education buckets, in the order they are emitted.
const (
	EduPrimary       = "primary"
	EduVocational    = "vocational"
	EduSecondary     = "secondary"
	EduPostSecondary = "post-secondary"
	EduHigher        = "higher education"
	EduInEducation   = "in education"
)

var educationOrder = []string{EduPrimary, EduVocational, EduSecondary, EduPostSecondary, EduHigher, EduInEducation}

var educationAliases = map[string]string{
	"primary":               EduPrimary,
	"primary school":        EduPrimary,
	"elementary":            EduPrimary,
	"elementary school":     EduPrimary,
	"basic":                 EduPrimary,
	"none":                  EduPrimary,
	"no formal education":   EduPrimary,
	"less than high school": EduPrimary,

	"vocational":          EduVocational,
	"vocational training": EduVocational,
	"technical":           EduVocational,
	"trade school":        EduVocational,
	"apprenticeship":      EduVocational,

	"secondary":           EduSecondary,
	"secondary school":    EduSecondary,
	"high school":         EduSecondary,
	"high school diploma": EduSecondary,
	"ged":                 EduSecondary,
	"gcse":                EduSecondary,
	"a-levels":            EduSecondary,
	"a levels":            EduSecondary,
	"baccalaureate":       EduSecondary,
	"matura":              EduSecondary,

	"post-secondary": EduPostSecondary,
	"postsecondary":  EduPostSecondary,
	"some college":   EduPostSecondary,
	"associate":      EduPostSecondary,
	"associate's":    EduPostSecondary,
	"associates":     EduPostSecondary,
	"certificate":    EduPostSecondary,

	"higher":           EduHigher,
	"higher education": EduHigher,
	"tertiary":         EduHigher,
	"university":       EduHigher,
	"college":          EduHigher,
	"undergraduate":    EduHigher,
	"bachelor":         EduHigher,
	"bachelor's":       EduHigher,
	"bachelors":        EduHigher,
	"graduate":         EduHigher,
	"postgraduate":     EduHigher,
	"master":           EduHigher,
	"master's":         EduHigher,
	"masters":          EduHigher,
	"mba":              EduHigher,
	"phd":              EduHigher,
	"doctorate":        EduHigher,

	"in progress":        EduInEducation,
	"in education":       EduInEducation,
	"student":            EduInEducation,
	"studying":           EduInEducation,
	"currently studying": EduInEducation,
	"enrolled":           EduInEducation,
}

var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// NormalizeEducation maps a possibly slash-joined education string onto the
// canonical buckets, de-duplicated, in canonical order. Tokens without an
// alias are kept as-is after the canonical buckets.
func NormalizeEducation(raw string) []string {
	found := make(map[string]bool)
	var unknown []string
	for _, token := range strings.Split(raw, "/") {
		token = normalizeEducationToken(token)
		if token == "" {
			continue
		}
		if bucket, ok := lookupEducation(token); ok {
			found[bucket] = true
			continue
		}
		if !found[token] {
			found[token] = true
			unknown = append(unknown, token)
		}
	}

	out := make([]string, 0, len(found))
	for _, bucket := range educationOrder {
		if found[bucket] {
			out = append(out, bucket)
		}
	}
	return append(out, unknown...)
}

func normalizeEducationToken(token string) string {
	token = strings.ToLower(token)
	token = strings.NewReplacer("’", "'", "‘", "'").Replace(token)
	token = parenthetical.ReplaceAllString(token, " ")
	return strings.Join(strings.Fields(token), " ")
}

// lookupEducation tries the token, then the token without a trailing
// "degree" or "education" word.
func lookupEducation(token string) (string, bool) {
	if bucket, ok := educationAliases[token]; ok {
		return bucket, true
	}
	for _, suffix := range []string{" degree", " education", " school"} {
		if trimmed := strings.TrimSuffix(token, suffix); trimmed != token {
			if bucket, ok := educationAliases[trimmed]; ok {
				return bucket, true
			}
		}
	}
	return "", false
}
