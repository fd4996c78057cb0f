package release

// Descriptor describes the latest remote release: its tag and the first asset.
type Descriptor struct {
	// Tag is the release tag name, treated as the version string.
	Tag string
	// AssetName is the file name of the first asset.
	AssetName string
	// DownloadURL is the browser download URL of the first asset.
	DownloadURL string
	// Size is the asset size in bytes as reported by the API.
	Size int64
}

// Version returns the tag without a leading "v".
func (d *Descriptor) Version() string {
	return normalizeTag(d.Tag)
}
