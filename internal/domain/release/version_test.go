package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBump covers each bump kind over well-formed markers.
func TestBump(t *testing.T) {
	t.Parallel()

	cases := []struct {
		current string
		kind    BumpKind
		want    string
	}{
		{"1.2.3", BumpPatch, "1.2.4"},
		{"1.2.3", BumpMinor, "1.3.0"},
		{"1.2.3", BumpMajor, "2.0.0"},
		{"0.0.0", BumpPatch, "0.0.1"},
		{"0.9.9", BumpMinor, "0.10.0"},
		{"9.9.9", BumpMajor, "10.0.0"},
		{"01.02.03", BumpPatch, "1.2.4"},
		{" 1.2.3\n", BumpPatch, "1.2.4"},
	}

	for _, tc := range cases {
		got, normalized, err := Bump(tc.current, tc.kind)
		require.NoError(t, err)
		require.False(t, normalized, tc.current)
		require.Equal(t, tc.want, got, "%s by %s", tc.current, tc.kind)
	}
}

// TestBump_MalformedNormalizesToBaseline checks the 1.0.0 baseline is applied before bumping.
func TestBump_MalformedNormalizesToBaseline(t *testing.T) {
	t.Parallel()

	cases := map[BumpKind]string{
		BumpPatch: "1.0.1",
		BumpMinor: "1.1.0",
		BumpMajor: "2.0.0",
	}

	for _, current := range []string{"garbage", "", "1.2", "v1.2.3", "1.2.3-rc1", "99999999999999999999.0.0"} {
		for kind, want := range cases {
			got, normalized, err := Bump(current, kind)
			require.NoError(t, err)
			require.True(t, normalized, current)
			require.Equal(t, want, got, "%q by %s", current, kind)
		}
	}
}

// TestBump_UnknownKind rejects kinds outside patch, minor and major.
func TestBump_UnknownKind(t *testing.T) {
	t.Parallel()

	_, _, err := Bump("1.2.3", BumpKind("micro"))
	require.ErrorIs(t, err, ErrUnknownBump)
}

// TestParseBumpKind maps CLI input to bump kinds.
func TestParseBumpKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseBumpKind("")
	require.NoError(t, err)
	require.Equal(t, BumpPatch, kind)

	kind, err = ParseBumpKind(" Minor ")
	require.NoError(t, err)
	require.Equal(t, BumpMinor, kind)

	_, err = ParseBumpKind("huge")
	require.ErrorIs(t, err, ErrUnknownBump)

	require.Equal(t, []string{"patch", "minor", "major"}, BumpKinds())
}

// TestSameVersion compares markers with release tags.
func TestSameVersion(t *testing.T) {
	t.Parallel()

	require.True(t, SameVersion("1.3.0", "1.3.0"))
	require.True(t, SameVersion("1.3.0\n", "v1.3.0"))
	require.False(t, SameVersion("1.2.3", "1.3.0"))
	require.False(t, SameVersion(InitialVersion, "1.0.0"))

	d := &Descriptor{Tag: "v2.0.1"}
	require.Equal(t, "2.0.1", d.Version())
}

// TestIsWellFormed checks the marker pattern.
func TestIsWellFormed(t *testing.T) {
	t.Parallel()

	require.True(t, IsWellFormed("0.0.0"))
	require.True(t, IsWellFormed("10.20.30"))
	require.False(t, IsWellFormed("1.2"))
	require.False(t, IsWellFormed("1.2.3.4"))
	require.False(t, IsWellFormed("v1.2.3"))
	require.False(t, IsWellFormed("-1.2.3"))
}
