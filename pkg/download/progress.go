package download

import (
	"github.com/cheggaaa/pb"
)

// BarReporter renders a terminal progress bar for a download.
type BarReporter struct {
	bar *pb.ProgressBar
}

// NewBarReporter creates a progress bar reporter.
func NewBarReporter() *BarReporter {
	return &BarReporter{}
}

func (r *BarReporter) OnStart(total int64) {
	if total < 0 {
		total = 0
	}
	r.bar = pb.New64(total)
	r.bar.SetUnits(pb.U_BYTES)
	r.bar.ShowSpeed = true
	r.bar.Start()
}

func (r *BarReporter) OnProgress(current int64) {
	if r.bar != nil {
		r.bar.Set64(current)
	}
}

func (r *BarReporter) OnComplete() {
	if r.bar != nil {
		r.bar.Finish()
	}
}
