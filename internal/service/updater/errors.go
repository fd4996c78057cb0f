package updater

import "errors"

var (
	// ErrCheckFailed indicates the latest release could not be determined.
	ErrCheckFailed = errors.New("failed to check for updates")

	// ErrDownloadFailed indicates the release asset could not be downloaded.
	ErrDownloadFailed = errors.New("failed to download update")

	// ErrBackupFailed indicates the snapshot of the installation could not be taken.
	ErrBackupFailed = errors.New("failed to back up installation")

	// ErrArchive indicates a wrong password or a corrupted archive.
	ErrArchive = errors.New("failed to extract update")

	// ErrInvalidRelease indicates the extracted release did not pass validation.
	ErrInvalidRelease = errors.New("invalid release contents")

	// ErrApplyFailed indicates installing the new files failed.
	ErrApplyFailed = errors.New("failed to apply update")

	// ErrRestartFailed indicates the program could not be relaunched.
	ErrRestartFailed = errors.New("failed to restart application")

	// errSettingsNotInitialised is returned when no configuration is provided.
	errSettingsNotInitialised = errors.New("settings are not initialized")

	// errTargetIsDir is returned when a release file would overwrite a directory.
	errTargetIsDir = errors.New("target is a directory")

	// errTargetNotDir is returned when a release directory would overwrite a file.
	errTargetNotDir = errors.New("target exists and is not a directory")
)
