package stamps

import (
	"os"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/model"
)

// DriftStatus classifies a planned output against the file on disk.
type DriftStatus string

const (
	DriftMissing   DriftStatus = "missing"
	DriftUnmanaged DriftStatus = "unmanaged"
	DriftClean     DriftStatus = "clean"
	DriftDrifted   DriftStatus = "drifted"
)

// Classify compares the planned (unstamped) content against the file at
// path using the configured drift detection.
//
// mtime_only behaves as sha256: comparing hashes is the safe choice until a
// recorded mtime baseline exists.
func Classify(path, plannedWithoutStamp string, drift *model.DriftDetection) (DriftStatus, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DriftMissing, nil
	} else if err != nil {
		return "", err
	}

	existing, err := fsutil.ReadString(path)
	if err != nil {
		return "", err
	}

	switch drift.EffectiveMethod() {
	case model.DriftNone:
		// Drift detection disabled: still distinguish managed from unmanaged.
		if Parse(existing) != nil {
			return DriftClean, nil
		}
		return DriftUnmanaged, nil

	case model.DriftMtimeOnly, model.DriftSha256:
		existingWithoutStamp, stamp := Strip(existing)
		if stamp == nil {
			return DriftUnmanaged, nil
		}
		if ContentSha256(existingWithoutStamp) == ContentSha256(plannedWithoutStamp) {
			return DriftClean, nil
		}
		return DriftDrifted, nil
	}
	return DriftUnmanaged, nil
}
