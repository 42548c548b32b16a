package healthpoller

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/dom"
)

// WriteText renders the current page for a terminal: the status fields
// followed by the checks table, read back from the document so the output
// always matches the HTML.
func (p *Poller) WriteText(w io.Writer) error {
	var (
		fields [][2]string
		note   string
		rows   [][]string
	)

	p.doc.View(func(root dom.Root) {
		fields = [][2]string{
			{"Status", root.Find(AttrPill).Text()},
			{"Service", root.Find(AttrService).Text()},
			{"Env", root.Find(AttrEnv).Text()},
			{"Version", root.Find(AttrVersion).Text()},
			{"Time", root.Find(AttrTime).Text()},
		}
		note = root.Find(AttrNote).Text()

		for _, tr := range root.Find(AttrChecks).Children() {
			var cells []string
			for _, td := range tr.Children() {
				cells = append(cells, td.Text())
			}
			rows = append(rows, cells)
		}
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range fields {
		fmt.Fprintf(tw, "%s:\t%s\n", f[0], f[1])
	}
	if note != "" {
		fmt.Fprintf(tw, "Note:\t%s\n", note)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "CHECK\tSTATUS\tTIMING\tERROR")
	for _, cells := range rows {
		for i, c := range cells {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, c)
		}
		fmt.Fprintln(tw)
	}

	return tw.Flush()
}
