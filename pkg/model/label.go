package model

import (
	"fmt"
	"path"
	"strings"
)

// A Label names a target declared in a Gantryfile.
//
//	//services/api:server   target "server" in <root>/services/api/Gantryfile
//	//services/api          shorthand for //services/api:api
//	:server                 target "server" in the current package
//	server                  same as :server
//
// The package path is always relative to the workspace root (the directory
// of the root Gantryfile), so labels are stable no matter which directory
// the command runs from.
type Label struct {
	// Package is the slash-separated path from the workspace root.
	// Empty for the root package.
	Package string

	// Target is the short name within the package.
	Target string
}

func (l Label) String() string {
	return fmt.Sprintf("//%s:%s", l.Package, l.Target)
}

func (l Label) Empty() bool {
	return l == Label{}
}

// ParseLabel parses an absolute label ("//pkg:name" or "//pkg").
func ParseLabel(s string) (Label, error) {
	if !strings.HasPrefix(s, "//") {
		return Label{}, fmt.Errorf("label %q must be absolute (start with //)", s)
	}
	return parseLabelBody(s, s[2:])
}

// ParseLabelInPackage parses a label that may be relative (":name" or
// "name") to the given package.
func ParseLabelInPackage(s string, pkg string) (Label, error) {
	if strings.HasPrefix(s, "//") {
		return ParseLabel(s)
	}
	target := strings.TrimPrefix(s, ":")
	if strings.ContainsAny(target, "/:") {
		return Label{}, fmt.Errorf("relative label %q may not contain '/' or ':'", s)
	}
	if err := validateTargetName(s, target); err != nil {
		return Label{}, err
	}
	return Label{Package: pkg, Target: target}, nil
}

func parseLabelBody(orig, body string) (Label, error) {
	pkg := body
	target := ""
	if i := strings.IndexByte(body, ':'); i >= 0 {
		pkg, target = body[:i], body[i+1:]
	} else {
		// "//services/api" names the target matching the last path segment.
		target = path.Base(pkg)
	}

	if pkg == "" && target == "." {
		return Label{}, fmt.Errorf("label %q has no target name", orig)
	}
	if err := validatePackagePath(orig, pkg); err != nil {
		return Label{}, err
	}
	if err := validateTargetName(orig, target); err != nil {
		return Label{}, err
	}
	return Label{Package: pkg, Target: target}, nil
}

func validatePackagePath(label, pkg string) error {
	if pkg == "" {
		return nil
	}
	if strings.HasPrefix(pkg, "/") || strings.HasSuffix(pkg, "/") {
		return fmt.Errorf("label %q: package path may not start or end with '/'", label)
	}
	for _, seg := range strings.Split(pkg, "/") {
		if seg == "" {
			return fmt.Errorf("label %q: empty package path segment", label)
		}
		if seg == "." || seg == ".." {
			return fmt.Errorf("label %q: package path may not contain %q", label, seg)
		}
		if !validNamePart(seg) {
			return fmt.Errorf("label %q: invalid package path segment %q", label, seg)
		}
	}
	return nil
}

func validateTargetName(label, target string) error {
	if target == "" {
		return fmt.Errorf("label %q has no target name", label)
	}
	if !validNamePart(target) {
		return fmt.Errorf("label %q: invalid target name %q", label, target)
	}
	return nil
}

func validNamePart(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return s != ""
}
