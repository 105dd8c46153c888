package tui

import (
	"fmt"
	"strings"

	"monobuild/src/report"
)

const (
	packageColumnWidth = 24
	buildColumnWidth   = 8
	statusColumnWidth  = 20
)

// RenderSummary formats the final records of a run as a table, one row per
// build, followed by an overall verdict.
func RenderSummary(s report.Summary, buildURL func(int) string) string {
	styles := DefaultStyles()
	var b strings.Builder

	b.WriteString(styles.TitleStyle().Render("Build summary"))
	b.WriteString("\n")

	header := TruncateAndPad("PACKAGE", packageColumnWidth, false) + " " +
		TruncateAndPad("BUILD", buildColumnWidth, false) + " " +
		TruncateAndPad("STATUS", statusColumnWidth, false) + " URL"
	b.WriteString(styles.HelpStyle().UnsetPadding().Render(header))
	b.WriteString("\n")

	for _, r := range s.Records {
		status := string(r.Status.Status)
		if status == "" {
			status = string(r.Status.Lifecycle)
		}
		cell := TruncateAndPad(status, statusColumnWidth, true)
		cell = styles.StatusStyle(r.Status.Finished(), r.Status.Succeeded()).Render(cell)

		url := ""
		if buildURL != nil {
			url = buildURL(r.BuildNum)
		}
		fmt.Fprintf(&b, "%s %s %s %s\n",
			TruncateAndPad(r.Package, packageColumnWidth, true),
			TruncateAndPad(fmt.Sprintf("#%d", r.BuildNum), buildColumnWidth, false),
			cell,
			url)
	}

	b.WriteString("\n")
	switch {
	case len(s.Records) == 0:
		b.WriteString("No builds were triggered")
	case s.Succeeded():
		b.WriteString(styles.StatusStyle(true, true).Render(fmt.Sprintf("All %d builds succeeded", len(s.Records))))
	default:
		b.WriteString(styles.StatusStyle(true, false).Render(fmt.Sprintf("%d of %d builds failed", len(s.Failures), len(s.Records))))
	}
	b.WriteString("\n")
	return b.String()
}
