// Package progress reports batch upload progress on stderr.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter tracks one batch of uploads. Step is called once per file, with
// the upload error if it failed; Finish returns how many failed.
type Reporter interface {
	Start(total int)
	Step(name string, err error)
	Finish() int
}

// NewReporter picks a bar for interactive use and plain lines under CI,
// where carriage-return redraws would garble the job log.
func NewReporter(w io.Writer) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return NewLineReporter(w)
	}
	return &BarReporter{w: w}
}

// BarReporter draws an upload bar. Failures are printed above it.
type BarReporter struct {
	w      io.Writer
	bar    *progressbar.ProgressBar
	failed int
}

func (r *BarReporter) Start(total int) {
	r.failed = 0
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription("Uploading"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *BarReporter) Step(name string, err error) {
	if err != nil {
		r.failed++
		if r.bar != nil {
			_ = r.bar.Clear()
		}
		fmt.Fprintf(r.w, "%s: %v\n", name, err)
	}
	if r.bar != nil {
		r.bar.Describe(name)
		_ = r.bar.Add(1)
	}
}

func (r *BarReporter) Finish() int {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
	return r.failed
}

// LineReporter writes one line per uploaded document.
type LineReporter struct {
	w      io.Writer
	total  int
	done   int
	failed int
}

// NewLineReporter returns a LineReporter writing to w.
func NewLineReporter(w io.Writer) *LineReporter {
	return &LineReporter{w: w}
}

func (r *LineReporter) Start(total int) {
	r.total, r.done, r.failed = total, 0, 0
	fmt.Fprintf(r.w, "Uploading %d documents\n", total)
}

func (r *LineReporter) Step(name string, err error) {
	r.done++
	if err != nil {
		r.failed++
		fmt.Fprintf(r.w, "[%d/%d] %s: failed: %v\n", r.done, r.total, name, err)
		return
	}
	fmt.Fprintf(r.w, "[%d/%d] %s\n", r.done, r.total, name)
}

func (r *LineReporter) Finish() int {
	fmt.Fprintf(r.w, "Uploaded %d of %d documents\n", r.done-r.failed, r.total)
	return r.failed
}
