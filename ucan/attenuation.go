package ucan

import (
	aura "github.com/osmandkitay/aura-sub000"
)

// ValidateAttenuation enforces the delegation subset law: every capability
// in attenuated must be covered by some capability in original under
// MatchResource and MatchAction, and every caveat key carried by the
// covering capability must be retained by the child. A single violation
// voids the whole delegation.
func ValidateAttenuation(original, attenuated []Capability) error {
	for _, child := range attenuated {
		if !coveredBy(child, original) {
			return aura.NewErrorf(aura.CodePermissionDenied,
				"capability %s is not covered by the parent grant", child)
		}
	}
	return nil
}

func coveredBy(child Capability, parents []Capability) bool {
	for _, parent := range parents {
		if MatchResource(parent.With, child.With) &&
			MatchAction(parent.Can, child.Can) &&
			caveatsRetained(parent.Caveats, child.Caveats) {
			return true
		}
	}
	return false
}

// caveatsRetained reports whether every caveat key on the parent grant is
// still present on the child. Children may add caveats freely; dropping an
// inherited caveat widens the grant and is forbidden.
func caveatsRetained(parent, child map[string]any) bool {
	for key := range parent {
		if _, ok := child[key]; !ok {
			return false
		}
	}
	return true
}
