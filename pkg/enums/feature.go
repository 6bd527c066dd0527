package enums

import "fmt"

// FeatureSetVersion is bumped whenever a Feature is added or retired so plan
// payloads written by older releases can be recognised.
const FeatureSetVersion = 1

// Feature is a capability a plan can grant. The set is closed: unknown keys in
// a plan's feature map are carried for display but never grant anything.
type Feature string

const (
	FeaturePinPosts Feature = "pin_posts"
)

var validFeatures = []Feature{
	FeaturePinPosts,
}

// Features returns every known feature in declaration order.
func Features() []Feature {
	out := make([]Feature, len(validFeatures))
	copy(out, validFeatures)
	return out
}

// String implements fmt.Stringer.
func (f Feature) String() string {
	return string(f)
}

// IsValid reports whether the value is a known Feature.
func (f Feature) IsValid() bool {
	for _, candidate := range validFeatures {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFeature converts raw input into a Feature.
func ParseFeature(value string) (Feature, error) {
	for _, candidate := range validFeatures {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid feature %q", value)
}
