package release

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
)

const (
	// InitialVersion is assumed when no version marker exists.
	InitialVersion = "0.0.0"

	// BaselineVersion replaces a malformed marker before bumping.
	BaselineVersion = "1.0.0"
)

// BumpKind selects the version component to increment.
type BumpKind string

// Supported bump kinds.
const (
	BumpPatch BumpKind = "patch"
	BumpMinor BumpKind = "minor"
	BumpMajor BumpKind = "major"
)

// ErrUnknownBump is returned for a bump kind other than patch, minor or major.
var ErrUnknownBump = errors.New("unknown bump kind")

//nolint:gochecknoglobals // Compiled once, read-only.
var markerPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// BumpKinds lists the accepted bump kinds in CLI order.
func BumpKinds() []string {
	return []string{string(BumpPatch), string(BumpMinor), string(BumpMajor)}
}

// ParseBumpKind maps user input to a BumpKind. Empty input means patch.
func ParseBumpKind(s string) (BumpKind, error) {
	switch kind := BumpKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case "":
		return BumpPatch, nil
	case BumpPatch, BumpMinor, BumpMajor:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBump, s)
	}
}

// IsWellFormed reports whether s is three dot-separated non-negative integers.
func IsWellFormed(s string) bool {
	return markerPattern.MatchString(s)
}

// Bump increments the component selected by kind and zeroes all lower components.
// A malformed current version is first normalized to BaselineVersion; normalized
// reports whether that happened so callers can warn about it.
func Bump(current string, kind BumpKind) (next string, normalized bool, err error) {
	v, ok := parseMarker(strings.TrimSpace(current))
	if !ok {
		v = semver.Version{Major: 1}
		normalized = true
	}

	switch kind {
	case BumpPatch:
		err = v.IncrementPatch()
	case BumpMinor:
		err = v.IncrementMinor()
	case BumpMajor:
		err = v.IncrementMajor()
	default:
		return "", normalized, fmt.Errorf("%w: %q", ErrUnknownBump, kind)
	}

	if err != nil {
		return "", normalized, fmt.Errorf("bump %s: %w", kind, err)
	}

	return v.String(), normalized, nil
}

// SameVersion reports whether a local marker and a remote tag name the same release.
// Surrounding whitespace and a leading "v" are ignored on both sides.
func SameVersion(local, remote string) bool {
	return normalizeTag(local) == normalizeTag(remote)
}

// parseMarker accepts leading zeros ("01.2.3") the same way the marker pattern does,
// which semver.Parse would reject.
func parseMarker(s string) (semver.Version, bool) {
	if !IsWellFormed(s) {
		return semver.Version{}, false
	}

	parts := strings.Split(s, ".")
	numbers := make([]uint64, len(parts))

	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return semver.Version{}, false
		}

		numbers[i] = n
	}

	return semver.Version{Major: numbers[0], Minor: numbers[1], Patch: numbers[2]}, true
}

func normalizeTag(s string) string {
	s = strings.TrimSpace(s)

	return strings.TrimPrefix(s, "v")
}
