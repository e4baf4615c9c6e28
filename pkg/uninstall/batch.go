package uninstall

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/storage"
)

// BatchItem records the outcome for one entry of a batch removal.
type BatchItem struct {
	Jdk  storage.InstalledJdk
	Size int64
	Err  error
}

// BatchResult summarizes a batch removal.
type BatchResult struct {
	Items     []BatchItem
	TotalSize int64
}

// Succeeded counts removed entries.
func (r *BatchResult) Succeeded() int {
	var n int
	for _, item := range r.Items {
		if item.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts entries that could not be removed.
func (r *BatchResult) Failed() int {
	return len(r.Items) - r.Succeeded()
}

// SelectBatch gathers the installations a batch spec addresses: a
// leading digit selects by version prefix, anything else by
// distribution name; an empty spec selects everything.
func (h *Handler) SelectBatch(spec string) ([]storage.InstalledJdk, error) {
	jdks, err := h.repo.ListInstalled()
	if err != nil {
		return nil, err
	}

	if spec != "" {
		filtered := jdks[:0]
		if spec[0] >= '0' && spec[0] <= '9' {
			for _, jdk := range jdks {
				if strings.HasPrefix(jdk.Version.String(), spec) {
					filtered = append(filtered, jdk)
				}
			}
		} else {
			for _, jdk := range jdks {
				if strings.EqualFold(jdk.Distribution, spec) {
					filtered = append(filtered, jdk)
				}
			}
		}
		jdks = filtered
	}

	if len(jdks) == 0 {
		target := spec
		if target == "" {
			target = "all"
		}
		return nil, errors.Wrapf(ErrNotInstalled, "%s", target)
	}
	return jdks, nil
}

// UninstallBatch removes a set of installations with per-item failure
// isolation: one failure never aborts the rest. The result is an error
// only when nothing was removed.
func (h *Handler) UninstallBatch(jdks []storage.InstalledJdk, opts Options) (*BatchResult, error) {
	result := &BatchResult{}
	for i := range jdks {
		jdk := jdks[i]
		size, err := h.repo.JdkSize(&jdk)
		if err != nil {
			size = 0
		}
		result.TotalSize += size

		item := BatchItem{Jdk: jdk, Size: size}
		if !opts.DryRun {
			item.Err = h.removeOne(&jdk, opts)
		}
		result.Items = append(result.Items, item)
	}

	if !opts.DryRun && result.Succeeded() == 0 {
		return result, errors.New("no JDKs were removed")
	}
	return result, nil
}
