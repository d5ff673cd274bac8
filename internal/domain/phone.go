package domain

import (
	"fmt"
	"strings"
)

// PhoneRegion names an accepted national numbering profile.
type PhoneRegion string

const (
	PhoneRegionUS PhoneRegion = "us"
	PhoneRegionIN PhoneRegion = "in"
)

func (r PhoneRegion) IsValid() bool {
	switch r {
	case PhoneRegionUS, PhoneRegionIN:
		return true
	}
	return false
}

// PhonePolicy normalizes raw phone input into a +<country><number> string.
// The accepted regions are configuration, not a hardcoded branch; input that
// matches none of them is a validation failure rather than a guessed country
// code.
type PhonePolicy struct {
	regions []PhoneRegion
}

func NewPhonePolicy(regions []string) (*PhonePolicy, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: at least one phone region is required", ErrValidation)
	}

	parsed := make([]PhoneRegion, 0, len(regions))
	seen := make(map[PhoneRegion]bool, len(regions))
	for _, raw := range regions {
		region := PhoneRegion(strings.ToLower(strings.TrimSpace(raw)))
		if !region.IsValid() {
			return nil, fmt.Errorf("%w: unsupported phone region %q", ErrValidation, raw)
		}
		if seen[region] {
			continue
		}
		seen[region] = true
		parsed = append(parsed, region)
	}

	return &PhonePolicy{regions: parsed}, nil
}

func (p *PhonePolicy) Regions() []PhoneRegion {
	out := make([]PhoneRegion, len(p.regions))
	copy(out, p.regions)
	return out
}

// Normalize strips non-digits and matches the result against each accepted
// region profile in configuration order.
func (p *PhonePolicy) Normalize(raw string) (string, error) {
	digits := digitsOnly(raw)
	if digits == "" {
		return "", fmt.Errorf("%w: phone number is required", ErrValidation)
	}

	for _, region := range p.regions {
		if normalized, ok := normalizeForRegion(region, digits); ok {
			return normalized, nil
		}
	}

	return "", fmt.Errorf("%w: phone %q does not match accepted regions %v", ErrValidation, raw, p.regions)
}

func normalizeForRegion(region PhoneRegion, digits string) (string, bool) {
	switch region {
	case PhoneRegionUS:
		if len(digits) == 11 && strings.HasPrefix(digits, "1") {
			return "+" + digits, true
		}
	case PhoneRegionIN:
		if len(digits) == 12 && strings.HasPrefix(digits, "91") {
			return "+" + digits, true
		}
		if len(digits) == 10 {
			return "+91" + digits, true
		}
	}
	return "", false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
