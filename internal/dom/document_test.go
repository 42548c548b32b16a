package dom_test

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/dom"
)

const fragment = `
<div data-page>
  <span data-pill class="pill pill--open">Checking…</span>
  <p data-note>old</p>
  <table><tbody data-rows><tr><td>stale</td></tr></tbody></table>
  <button data-go>Go</button>
</div>`

var _ = Describe("Document", func() {
	var doc *dom.Document

	BeforeEach(func() {
		var err error
		doc, err = dom.ParseString(fragment)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Find", func() {
		It("should locate elements by data attribute", func() {
			doc.View(func(root dom.Root) {
				Expect(root.Find("data-pill").Text()).To(Equal("Checking…"))
				Expect(root.Find("data-rows").Tag()).To(Equal("tbody"))
			})
		})

		It("should return nil for absent attributes", func() {
			doc.View(func(root dom.Root) {
				Expect(root.Find("data-missing")).To(BeNil())
			})
			Expect(doc.Has("data-missing")).To(BeFalse())
			Expect(doc.Has("data-page")).To(BeTrue())
		})
	})

	Describe("Element", func() {
		It("should replace text", func() {
			doc.Update(func(root dom.Root) {
				root.Find("data-note").SetText("new")
			})
			doc.View(func(root dom.Root) {
				Expect(root.Find("data-note").Text()).To(Equal("new"))
			})
		})

		It("should add and remove classes without duplicates", func() {
			doc.Update(func(root dom.Root) {
				pill := root.Find("data-pill")
				pill.RemoveClass("pill--open", "pill--resolved")
				pill.AddClass("pill--resolved", "pill--resolved")
			})
			doc.View(func(root dom.Root) {
				Expect(root.Find("data-pill").Classes()).To(Equal([]string{"pill", "pill--resolved"}))
			})
		})

		It("should rebuild children", func() {
			doc.Update(func(root dom.Root) {
				rows := root.Find("data-rows")
				rows.RemoveChildren()
				for _, name := range []string{"a", "b"} {
					tr := dom.NewElement("tr", "row")
					td := dom.NewElement("td")
					td.SetText(name)
					tr.AppendChild(td)
					rows.AppendChild(tr)
				}
			})
			doc.View(func(root dom.Root) {
				rows := root.Find("data-rows").Children()
				Expect(rows).To(HaveLen(2))
				Expect(rows[0].Text()).To(Equal("a"))
				Expect(rows[1].HasClass("row")).To(BeTrue())
			})
		})

		It("should tolerate nil receivers", func() {
			var missing *dom.Element
			Expect(func() {
				missing.SetText("x")
				missing.AddClass("y")
				missing.RemoveClass("y")
				missing.RemoveChildren()
				missing.AppendChild(dom.NewElement("td"))
			}).NotTo(Panic())
			Expect(missing.Text()).To(BeEmpty())
			Expect(missing.Children()).To(BeNil())
		})
	})

	Describe("On and Click", func() {
		It("should dispatch to attached handlers in order", func() {
			var calls []string
			Expect(doc.On("data-go", func(context.Context) { calls = append(calls, "first") })).To(BeTrue())
			Expect(doc.On("data-go", func(context.Context) { calls = append(calls, "second") })).To(BeTrue())

			Expect(doc.Click(context.Background(), "data-go")).To(Equal(2))
			Expect(calls).To(Equal([]string{"first", "second"}))
		})

		It("should not attach to absent elements", func() {
			Expect(doc.On("data-missing", func(context.Context) {})).To(BeFalse())
			Expect(doc.Click(context.Background(), "data-missing")).To(Equal(0))
		})
	})

	Describe("Render", func() {
		It("should serialize the current tree", func() {
			doc.Update(func(root dom.Root) {
				root.Find("data-note").SetText("rendered")
			})
			var buf bytes.Buffer
			Expect(doc.Render(&buf)).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("<p data-note=\"\">rendered</p>"))
		})
	})
})
