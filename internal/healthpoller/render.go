package healthpoller

import (
	_ "embed"
	"fmt"

	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/dom"
)

// Attributes of the page contract.
const (
	AttrPage    = "data-health-page"
	AttrPill    = "data-health-pill"
	AttrService = "data-health-service"
	AttrEnv     = "data-health-env"
	AttrVersion = "data-health-version"
	AttrTime    = "data-health-time"
	AttrChecks  = "data-health-checks"
	AttrJSON    = "data-health-json"
	AttrNote    = "data-health-note"
	AttrRefresh = "data-health-refresh"
	AttrCopy    = "data-health-copy"
	AttrCopy2   = "data-health-copy-2"
)

const (
	ClassPill         = "issues__pill"
	ClassPillOpen     = "issues__pill--open"
	ClassPillResolved = "issues__pill--resolved"
	ClassNoteError    = "is-error"
	ClassRow          = "issues__tr"
	ClassCell         = "issues__td"
	ClassCellMono     = "issues__td--mono"
	ClassCellMuted    = "issues__td--muted"
)

const (
	// Placeholder stands in for every absent value.
	Placeholder = "—"

	PillChecking = "Checking…"
	PillHealthy  = "Healthy"
	NoteHealthy  = "All checks passed."
	NoteFailing  = "One or more checks failed. See errors/timings."
)

//go:embed page.html
var defaultPage string

// DefaultPage returns the built-in page template.
func DefaultPage() string {
	return defaultPage
}

// NotReadyText is the pill text for a failed fetch.
func NotReadyText(status int) string {
	return fmt.Sprintf("Not Ready (%d)", status)
}

func setPill(pill *dom.Element, ok bool, text string) {
	pill.RemoveClass(ClassPillOpen, ClassPillResolved)
	if ok {
		pill.AddClass(ClassPillResolved)
	} else {
		pill.AddClass(ClassPillOpen)
	}
	pill.SetText(text)
}

func renderPending(root dom.Root) {
	setPill(root.Find(AttrPill), false, PillChecking)
	root.Find(AttrNote).SetText("")
}

func renderResult(root dom.Root, res FetchResult) {
	r := res.Report

	root.Find(AttrService).SetText(orPlaceholder(r.Service))
	root.Find(AttrEnv).SetText(orPlaceholder(r.Env))
	root.Find(AttrVersion).SetText(orPlaceholder(r.Version))
	root.Find(AttrTime).SetText(orPlaceholder(r.Time))
	root.Find(AttrJSON).SetText(r.JSON())

	renderChecks(root.Find(AttrChecks), r)

	pill := root.Find(AttrPill)
	note := root.Find(AttrNote)
	if res.OK {
		setPill(pill, true, PillHealthy)
		note.SetText(NoteHealthy)
		note.RemoveClass(ClassNoteError)
	} else {
		setPill(pill, false, NotReadyText(res.Status))
		note.SetText(NoteFailing)
		note.AddClass(ClassNoteError)
	}
}

// renderChecks replaces every row of tbody with the rows of r.
func renderChecks(tbody *dom.Element, r Report) {
	if tbody == nil {
		return
	}

	tbody.RemoveChildren()
	for _, row := range Rows(r) {
		tbody.AppendChild(rowElement(row))
	}
}

func rowElement(row CheckRow) *dom.Element {
	name := dom.NewElement("td", ClassCell)
	name.SetText(row.Name)

	status := dom.NewElement("td", ClassCell)
	pill := dom.NewElement("span", ClassPill)
	setPill(pill, row.OK, row.StatusText())
	status.AppendChild(pill)

	timing := dom.NewElement("td", ClassCell, ClassCellMono)
	timing.SetText(row.TimingText())

	errText := dom.NewElement("td", ClassCell, ClassCellMuted)
	errText.SetText(row.ErrorDisplay())

	tr := dom.NewElement("tr", ClassRow)
	tr.Append(name, status, timing, errText)
	return tr
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
