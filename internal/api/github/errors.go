package github

import "errors"

var (
	// ErrNoRelease indicates the repository has no published release.
	ErrNoRelease = errors.New("no release found")

	// ErrNoAssets indicates the latest release carries no downloadable asset.
	ErrNoAssets = errors.New("release has no assets")

	// ErrRateLimited indicates the GitHub API rate limit was exceeded.
	ErrRateLimited = errors.New("GitHub API rate limited")

	// ErrBadStatus indicates an unexpected HTTP status.
	ErrBadStatus = errors.New("unexpected http status")

	// ErrNetwork indicates a transport-level failure.
	ErrNetwork = errors.New("network error")

	// ErrMalformed indicates an unreadable release payload.
	ErrMalformed = errors.New("malformed release metadata")

	// errRepoFormat is returned when the repository is not owner/name.
	errRepoFormat = errors.New("repository must be owner/name")
)
