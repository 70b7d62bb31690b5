package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/ghoulbites/applycrawl/internal/model"
)

// maxDomainsListed caps the domain statistics table.
const maxDomainsListed = 10

// MarkdownWriter outputs a human-readable "how to apply" summary per
// target, plus run statistics.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter writing to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders the full Markdown report.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	for _, target := range report.Targets {
		w.writeTarget(md, report, target)
	}
	w.writeDomains(md, report)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Application Page Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID + "`"},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Targets", strings.Join(report.Targets, ", ")},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Crawl Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages visited", strconv.Itoa(report.Stats.Visited)},
			{"URLs queued", strconv.Itoa(report.Stats.Queued)},
			{"Candidate pages", strconv.Itoa(len(report.Candidates))},
			{"Confirmed application pages", strconv.Itoa(len(report.ApplicationPages()))},
			{"Admission domains", strconv.Itoa(len(report.Stats.AdmissionDomains))},
		},
	})
	md.PlainText("")
}

// writeTarget renders the per-target "how to apply" section: each
// confirmed application page with its title and the evidence that
// confirmed it.
func (w *MarkdownWriter) writeTarget(md *markdown.Markdown, report *model.CrawlReport, target string) {
	md.H2("How to apply: " + target)
	md.PlainText("")

	pages := report.PagesForTarget(target)
	if len(pages) == 0 {
		md.PlainText("No confirmed application pages found.")
		md.PlainText("")
		return
	}

	for _, page := range pages {
		title := page.Title
		if title == "" {
			title = page.URL
		}
		md.H3(title)
		md.BulletList(
			"URL: "+page.URL,
			"Evidence: "+strings.Join(page.Reasons, "; "),
			"Evaluation: "+page.Evaluation,
		)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, report *model.CrawlReport) {
	if len(report.TopDomains) == 0 {
		return
	}

	md.H2("Most Visited Domains")
	md.PlainText("")

	admission := make(map[string]bool, len(report.Stats.AdmissionDomains))
	for _, d := range report.Stats.AdmissionDomains {
		admission[d] = true
	}

	domains := report.TopDomains
	if len(domains) > maxDomainsListed {
		domains = domains[:maxDomainsListed]
	}
	rows := make([][]string, 0, len(domains))
	for _, dc := range domains {
		kind := ""
		if admission[dc.Domain] {
			kind = "admissions"
		}
		rows = append(rows, []string{dc.Domain, strconv.Itoa(dc.Count), kind})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Visits", "Type"},
		Rows:   rows,
	})
	md.PlainText("")
}
