package report

import (
	"io"

	"github.com/ghoulbites/applycrawl/internal/model"
)

// Writer renders a crawl report to its configured destination.
type Writer interface {
	// Write outputs the report. It returns the number of bytes
	// written and any error encountered.
	Write(report *model.CrawlReport) (int, error)
}

// MultiWriter writes a report through several Writers, stopping on the
// first error. io.MultiWriter does not fit here because report Writers
// consume reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer fanning out to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every configured Writer and returns the
// total bytes written.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter holds the output destination shared by all writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
