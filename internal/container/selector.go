package container

import (
	"github.com/distribution/reference"
)

// RefSelector matches image references found inside manifest documents
// against a declared image target.
//
// An untagged selector ("gcr.io/acme/api") matches any ref with the same
// name, whatever its tag. A tagged selector matches only the exact string;
// declaring "gcr.io/acme/api:canary" will not rewrite the ":stable"
// containers in the same document.
type RefSelector struct {
	ref   reference.Named
	exact bool
}

func NewRefSelector(ref reference.Named) RefSelector {
	_, tagged := ref.(reference.NamedTagged)
	return RefSelector{ref: ref, exact: tagged}
}

func ParseSelector(s string) (RefSelector, error) {
	ref, err := ParseNamed(s)
	if err != nil {
		return RefSelector{}, err
	}
	return NewRefSelector(ref), nil
}

func MustParseSelector(s string) RefSelector {
	sel, err := ParseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

func (s RefSelector) Matches(toMatch reference.Named) bool {
	if s.ref == nil {
		return false
	}
	if s.exact {
		return toMatch.String() == s.ref.String()
	}
	return toMatch.Name() == s.ref.Name()
}

// MatchesString parses candidate and matches it; unparseable candidates
// match nothing rather than erroring, since manifests may carry image
// strings (templated, third-party) that we have no claim over.
func (s RefSelector) MatchesString(candidate string) bool {
	ref, err := reference.ParseNormalizedNamed(candidate)
	if err != nil {
		return false
	}
	return s.Matches(ref)
}

func (s RefSelector) Empty() bool { return s.ref == nil }

// RefName is the fully-qualified name without tag or digest.
func (s RefSelector) RefName() string { return s.ref.Name() }

// AsNamed returns the underlying name, tag and digest stripped.
func (s RefSelector) AsNamed() reference.Named { return reference.TrimNamed(s.ref) }

func (s RefSelector) String() string {
	if s.ref == nil {
		return ""
	}
	return s.ref.String()
}
