package vault

import (
	"github.com/inkwell-labs/vaultsync/internal/scope"
	"github.com/inkwell-labs/vaultsync/internal/settings"
)

// Metrics summarizes vault storage for the settings surface. Available is
// false when the computation failed; callers render an "unavailable" state
// instead of propagating the failure.
type Metrics struct {
	UsedBytes  int64 `json:"usedBytes"`
	TotalBytes int64 `json:"totalBytes"`
	Available  bool  `json:"available"`
}

// ComputeMetrics derives the bytes that would sync under the current folder
// scope and type toggles versus the total bytes in the vault.
func ComputeMetrics(root string, sc *scope.Resolver, types settings.FileTypes) (Metrics, error) {
	var m Metrics
	err := WalkFiles(root, func(rel, _ string, size int64) error {
		m.TotalBytes += size
		if !TypeEnabled(types, KindOf(rel)) {
			return nil
		}
		if InScope(sc, parentFolder(rel)) {
			m.UsedBytes += size
		}
		return nil
	})
	if err != nil {
		return Metrics{}, err
	}
	m.Available = true
	return m, nil
}

// TypeEnabled reports whether files of the given kind are covered by the
// type toggles. Unclassified files never sync.
func TypeEnabled(types settings.FileTypes, kind FileKind) bool {
	switch kind {
	case KindMarkdown:
		return types.Markdown
	case KindImage:
		return types.Images
	case KindPDF:
		return types.PDF
	default:
		return false
	}
}
