package enums

import (
	"fmt"
	"strings"
	"time"
)

// AccessType is the resolved entitlement state of an installed app.
type AccessType string

const (
	AccessTypePremium AccessType = "premium"
	AccessTypeTrial   AccessType = "trial"
	AccessTypeExpired AccessType = "expired"
	// AccessTypeNone means the user never installed the app.
	AccessTypeNone AccessType = "not_installed"
)

// String implements fmt.Stringer.
func (a AccessType) String() string {
	return string(a)
}

// GrantKind is what an admin hands out for a (user, app) pair.
type GrantKind string

const (
	GrantKindTrial   GrantKind = "trial"
	GrantKindPremium GrantKind = "premium"
)

var validGrantKinds = []GrantKind{GrantKindTrial, GrantKindPremium}

// IsValid reports whether the value matches a grant kind.
func (g GrantKind) IsValid() bool {
	for _, candidate := range validGrantKinds {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGrantKind converts the raw string to GrantKind.
func ParseGrantKind(value string) (GrantKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validGrantKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid grant kind %q", value)
}

// PremiumDuration enumerates the premium packages an admin can grant.
type PremiumDuration string

const (
	PremiumDuration24Hours PremiumDuration = "24h"
	PremiumDuration3Days   PremiumDuration = "3d"
	PremiumDuration7Days   PremiumDuration = "7d"
	PremiumDuration1Month  PremiumDuration = "1m"
	PremiumDurationCustom  PremiumDuration = "custom"
)

var validPremiumDurations = []PremiumDuration{
	PremiumDuration24Hours,
	PremiumDuration3Days,
	PremiumDuration7Days,
	PremiumDuration1Month,
	PremiumDurationCustom,
}

// IsValid reports whether the value matches a premium package.
func (p PremiumDuration) IsValid() bool {
	for _, candidate := range validPremiumDurations {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePremiumDuration converts the raw string to PremiumDuration.
func ParsePremiumDuration(value string) (PremiumDuration, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPremiumDurations {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid premium duration %q", value)
}

// Window returns the length of the package. A month is 30 days; custom packages need positive hours.
func (p PremiumDuration) Window(customHours int) (time.Duration, error) {
	switch p {
	case PremiumDuration24Hours:
		return 24 * time.Hour, nil
	case PremiumDuration3Days:
		return 3 * 24 * time.Hour, nil
	case PremiumDuration7Days:
		return 7 * 24 * time.Hour, nil
	case PremiumDuration1Month:
		return 30 * 24 * time.Hour, nil
	case PremiumDurationCustom:
		if customHours <= 0 {
			return 0, fmt.Errorf("custom premium duration requires positive hours")
		}
		return time.Duration(customHours) * time.Hour, nil
	}
	return 0, fmt.Errorf("invalid premium duration %q", p)
}
