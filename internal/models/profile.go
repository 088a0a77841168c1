package models

import "strings"

// DemographicProfile seeds both the graph query and the cache key. All fields are optional.
type DemographicProfile struct {
	AgeGroup  string `json:"ageGroup,omitempty" yaml:"age_group"`
	Location  string `json:"location,omitempty" yaml:"location"`
	Education string `json:"education,omitempty" yaml:"education"`
	Gender    string `json:"gender,omitempty" yaml:"gender"`
}

// Normalized returns a copy with every field lowercased and trimmed.
func (p DemographicProfile) Normalized() DemographicProfile {
	return DemographicProfile{
		AgeGroup:  normalizeField(p.AgeGroup),
		Location:  normalizeField(p.Location),
		Education: normalizeField(p.Education),
		Gender:    normalizeField(p.Gender),
	}
}

// IsEmpty reports whether every field is blank.
func (p DemographicProfile) IsEmpty() bool {
	n := p.Normalized()
	return n.AgeGroup == "" && n.Location == "" && n.Education == "" && n.Gender == ""
}

func normalizeField(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
