package enums

import "fmt"

// RecommendationTag is the performance tier the ROAS engine assigns to a product.
type RecommendationTag string

const (
	RecommendationTagExcellent  RecommendationTag = "excellent"
	RecommendationTagGood       RecommendationTag = "good"
	RecommendationTagAcceptable RecommendationTag = "acceptable"
	RecommendationTagLosing     RecommendationTag = "losing"
	RecommendationTagNeutral    RecommendationTag = "neutral"
	RecommendationTagDefault    RecommendationTag = "default"
)

var validRecommendationTags = []RecommendationTag{
	RecommendationTagExcellent,
	RecommendationTagGood,
	RecommendationTagAcceptable,
	RecommendationTagLosing,
	RecommendationTagNeutral,
	RecommendationTagDefault,
}

// String implements fmt.Stringer.
func (t RecommendationTag) String() string {
	return string(t)
}

// IsValid reports whether the value matches one of the six engine tiers.
func (t RecommendationTag) IsValid() bool {
	for _, candidate := range validRecommendationTags {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseRecommendationTag converts the raw string to RecommendationTag.
func ParseRecommendationTag(value string) (RecommendationTag, error) {
	for _, candidate := range validRecommendationTags {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recommendation tag %q", value)
}
