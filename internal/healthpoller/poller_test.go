package healthpoller_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/clipboard"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/dom"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/healthpoller"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/metrics"
)

type endpoint struct {
	mutex  sync.Mutex
	status int
	body   string
	hits   atomic.Int32
}

func (e *endpoint) set(status int, body string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.status, e.body = status, body
}

func (e *endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.hits.Add(1)
	e.mutex.Lock()
	status, body := e.status, e.body
	e.mutex.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

type cell struct {
	name, status, timing, err string
}

func tableRows(doc *dom.Document) []cell {
	var grid [][]string
	doc.View(func(root dom.Root) {
		for _, tr := range root.Find(healthpoller.AttrChecks).Children() {
			var texts []string
			for _, td := range tr.Children() {
				texts = append(texts, td.Text())
			}
			grid = append(grid, texts)
		}
	})

	out := make([]cell, 0, len(grid))
	for _, texts := range grid {
		Expect(texts).To(HaveLen(4))
		out = append(out, cell{texts[0], texts[1], texts[2], texts[3]})
	}
	return out
}

func textOf(doc *dom.Document, attr string) string {
	var s string
	doc.View(func(root dom.Root) {
		s = root.Find(attr).Text()
	})
	return s
}

func hasClass(doc *dom.Document, attr, class string) bool {
	var ok bool
	doc.View(func(root dom.Root) {
		ok = root.Find(attr).HasClass(class)
	})
	return ok
}

var _ = Describe("Poller", func() {
	var (
		target *endpoint
		server *httptest.Server
		doc    *dom.Document
		board  *clipboard.Memory
		poller *healthpoller.Poller
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		target = &endpoint{status: http.StatusOK, body: `{}`}
		server = httptest.NewServer(target)
		DeferCleanup(server.Close)

		var err error
		doc, err = dom.ParseString(healthpoller.DefaultPage())
		Expect(err).NotTo(HaveOccurred())

		board = clipboard.NewMemory()
		poller, err = healthpoller.New(doc, healthpoller.NewFetcher(server.Client(), quietLogger()), quietLogger(), healthpoller.Options{
			BaseURL:   server.URL + "/dashboard/health/",
			Timeout:   time.Second,
			Clipboard: board,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("should resolve the health path against the origin", func() {
			Expect(poller.HealthURL()).To(Equal(server.URL + healthpoller.HealthPath))
		})

		It("should reject a base url without a scheme", func() {
			_, err := healthpoller.New(doc, nil, nil, healthpoller.Options{BaseURL: "example.com"})
			Expect(err).To(HaveOccurred())
		})

		It("should reject a nil document", func() {
			_, err := healthpoller.New(nil, nil, nil, healthpoller.Options{BaseURL: server.URL})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Bind", func() {
		It("should perform the initial refresh", func() {
			target.set(http.StatusOK, `{"service":"shop","checks":{"db":true}}`)

			Expect(poller.Bind(ctx)).To(BeTrue())
			Expect(target.hits.Load()).To(BeEquivalentTo(1))
			Expect(textOf(doc, healthpoller.AttrPill)).To(Equal(healthpoller.PillHealthy))
			Expect(poller.State().Phase).To(Equal(healthpoller.PhaseHealthy))
		})

		It("should wire the refresh trigger", func() {
			poller.Bind(ctx)
			target.set(http.StatusServiceUnavailable, `{}`)

			Expect(poller.Trigger(ctx, healthpoller.AttrRefresh)).To(BeTrue())
			Expect(target.hits.Load()).To(BeEquivalentTo(2))
			Expect(textOf(doc, healthpoller.AttrPill)).To(Equal("Not Ready (503)"))
		})

		It("should wire both copy triggers", func() {
			poller.Bind(ctx)

			Expect(poller.Trigger(ctx, healthpoller.AttrCopy)).To(BeTrue())
			Expect(poller.Trigger(ctx, healthpoller.AttrCopy2)).To(BeTrue())
			Expect(board.Writes()).To(HaveLen(2))
		})

		It("should attach handlers only once", func() {
			poller.Bind(ctx)
			Expect(poller.Bind(ctx)).To(BeTrue())

			poller.Trigger(ctx, healthpoller.AttrRefresh)
			Expect(target.hits.Load()).To(BeEquivalentTo(2))
		})

		It("should do nothing without the page marker", func() {
			bare, err := dom.ParseString(`<div><span data-health-pill>idle</span><button data-health-refresh>r</button></div>`)
			Expect(err).NotTo(HaveOccurred())
			p, err := healthpoller.New(bare, healthpoller.NewFetcher(server.Client(), quietLogger()), quietLogger(), healthpoller.Options{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())

			Expect(p.Active()).To(BeFalse())
			Expect(p.Bind(ctx)).To(BeFalse())
			Expect(p.Trigger(ctx, healthpoller.AttrRefresh)).To(BeFalse())
			Expect(target.hits.Load()).To(BeZero())
			Expect(textOf(bare, healthpoller.AttrPill)).To(Equal("idle"))
		})
	})

	Describe("Refresh", func() {
		It("should render a healthy report", func() {
			target.set(http.StatusOK, `{
				"service": "shop", "env": "prod", "version": "1.4.2", "time": "2026-10-16T10:00:00Z",
				"checks": {"db": true, "cache": false},
				"timings_ms": {"db": 12},
				"errors": {"cache": "timeout"}
			}`)

			res := poller.Refresh(ctx)
			Expect(res.OK).To(BeTrue())

			Expect(textOf(doc, healthpoller.AttrPill)).To(Equal("Healthy"))
			Expect(hasClass(doc, healthpoller.AttrPill, healthpoller.ClassPillResolved)).To(BeTrue())
			Expect(hasClass(doc, healthpoller.AttrPill, healthpoller.ClassPillOpen)).To(BeFalse())
			Expect(textOf(doc, healthpoller.AttrNote)).To(Equal(healthpoller.NoteHealthy))
			Expect(hasClass(doc, healthpoller.AttrNote, healthpoller.ClassNoteError)).To(BeFalse())

			Expect(textOf(doc, healthpoller.AttrService)).To(Equal("shop"))
			Expect(textOf(doc, healthpoller.AttrEnv)).To(Equal("prod"))
			Expect(textOf(doc, healthpoller.AttrVersion)).To(Equal("1.4.2"))
			Expect(textOf(doc, healthpoller.AttrTime)).To(Equal("2026-10-16T10:00:00Z"))

			Expect(tableRows(doc)).To(Equal([]cell{
				{"db", "OK", "12 ms", "—"},
				{"cache", "Fail", "—", "timeout"},
			}))
		})

		It("should render a not ready report", func() {
			target.set(http.StatusServiceUnavailable, `{"checks":{"db":false}}`)

			res := poller.Refresh(ctx)
			Expect(res.OK).To(BeFalse())

			Expect(textOf(doc, healthpoller.AttrPill)).To(Equal("Not Ready (503)"))
			Expect(hasClass(doc, healthpoller.AttrPill, healthpoller.ClassPillOpen)).To(BeTrue())
			Expect(textOf(doc, healthpoller.AttrNote)).To(Equal(healthpoller.NoteFailing))
			Expect(hasClass(doc, healthpoller.AttrNote, healthpoller.ClassNoteError)).To(BeTrue())
			Expect(poller.State()).To(Equal(healthpoller.PollState{Phase: healthpoller.PhaseUnhealthy, Status: 503}))
		})

		It("should show dashes for missing fields", func() {
			target.set(http.StatusOK, `{"checks":{"db":true}}`)
			poller.Refresh(ctx)

			for _, attr := range []string{healthpoller.AttrService, healthpoller.AttrEnv, healthpoller.AttrVersion, healthpoller.AttrTime} {
				Expect(textOf(doc, attr)).To(Equal("—"))
			}
		})

		It("should show the placeholder row for an empty checks object", func() {
			target.set(http.StatusOK, `{"checks":{}}`)
			poller.Refresh(ctx)

			Expect(tableRows(doc)).To(Equal([]cell{{"db", "Fail", "—", "—"}}))
		})

		It("should replace the previous rows", func() {
			target.set(http.StatusOK, `{"checks":{"a":true,"b":true,"c":true}}`)
			poller.Refresh(ctx)
			Expect(tableRows(doc)).To(HaveLen(3))

			target.set(http.StatusOK, `{"checks":{"z":true}}`)
			poller.Refresh(ctx)
			Expect(tableRows(doc)).To(Equal([]cell{{"z", "OK", "—", "—"}}))
		})

		It("should pretty-print the raw report", func() {
			target.set(http.StatusOK, `{"service":"shop","checks":{"db":true}}`)
			poller.Refresh(ctx)

			Expect(textOf(doc, healthpoller.AttrJSON)).To(Equal("{\n  \"service\": \"shop\",\n  \"checks\": {\n    \"db\": true\n  }\n}"))
		})

		It("should degrade a malformed body to an empty report", func() {
			target.set(http.StatusBadGateway, `<html>bad gateway</html>`)
			res := poller.Refresh(ctx)

			Expect(res.Degraded()).To(BeTrue())
			Expect(textOf(doc, healthpoller.AttrPill)).To(Equal("Not Ready (502)"))
			Expect(textOf(doc, healthpoller.AttrJSON)).To(Equal("{}"))
			Expect(tableRows(doc)).To(Equal([]cell{{"db", "Fail", "—", "—"}}))
		})

		It("should render an unreachable endpoint as not ready with status 0", func() {
			server.Close()
			res := poller.Refresh(ctx)

			Expect(res.Kind).To(Equal(healthpoller.KindNetwork))
			Expect(textOf(doc, healthpoller.AttrPill)).To(Equal("Not Ready (0)"))
			Expect(textOf(doc, healthpoller.AttrJSON)).To(Equal("{}"))
		})

		It("should leave one response's rows after concurrent refreshes", func() {
			small := []cell{{"a", "OK", "—", "—"}, {"b", "Fail", "—", "—"}}
			large := []cell{{"x", "OK", "—", "—"}, {"y", "OK", "—", "—"}, {"z", "OK", "—", "—"}}

			var toggle atomic.Int32
			alternating := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body := `{"checks":{"a":true,"b":false}}`
				if toggle.Add(1)%2 == 0 {
					body = `{"checks":{"x":true,"y":true,"z":true}}`
					time.Sleep(5 * time.Millisecond)
				}
				_, _ = w.Write([]byte(body))
			}))
			DeferCleanup(alternating.Close)

			p, err := healthpoller.New(doc, healthpoller.NewFetcher(alternating.Client(), quietLogger()), quietLogger(), healthpoller.Options{
				BaseURL: alternating.URL,
				Timeout: time.Second,
			})
			Expect(err).NotTo(HaveOccurred())

			for range 10 {
				var wg sync.WaitGroup
				for range 2 {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						p.Refresh(ctx)
					}()
				}
				wg.Wait()

				Expect([][]cell{small, large}).To(ContainElement(tableRows(doc)))
				Expect(textOf(doc, healthpoller.AttrPill)).To(Equal("Healthy"))
			}
		})
	})

	Describe("Copy", func() {
		It("should copy the displayed JSON byte for byte", func() {
			target.set(http.StatusOK, `{"service":"shop","checks":{"db":true,"cache":false},"timings_ms":{"db":1.25}}`)
			poller.Refresh(ctx)

			res := poller.Copy(ctx)
			Expect(res.OK).To(BeTrue())
			Expect(res.Text).To(Equal(textOf(doc, healthpoller.AttrJSON)))
			Expect(board.Text()).To(Equal(textOf(doc, healthpoller.AttrJSON)))
		})

		It("should copy the empty object before any refresh", func() {
			res := poller.Copy(ctx)
			Expect(res.OK).To(BeTrue())
			Expect(board.Text()).To(Equal("{}"))
		})

		It("should copy the empty object when the panel is missing", func() {
			page, err := dom.ParseString(`<main data-health-page><button data-health-copy>c</button></main>`)
			Expect(err).NotTo(HaveOccurred())
			p, err := healthpoller.New(page, nil, quietLogger(), healthpoller.Options{BaseURL: server.URL, Clipboard: board})
			Expect(err).NotTo(HaveOccurred())

			Expect(p.Copy(ctx).Text).To(Equal("{}"))
			Expect(board.Text()).To(Equal("{}"))
		})

		It("should swallow clipboard failures", func() {
			board.Fail(errors.New("denied"))

			var res healthpoller.CopyResult
			Expect(func() { res = poller.Copy(ctx) }).NotTo(Panic())
			Expect(res.OK).To(BeFalse())
			Expect(res.Kind).To(Equal(healthpoller.KindClipboard))
			Expect(res.Err).To(MatchError(healthpoller.ErrClipboard))
		})

		It("should fail softly without a clipboard", func() {
			p, err := healthpoller.New(doc, nil, quietLogger(), healthpoller.Options{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())

			res := p.Copy(ctx)
			Expect(res.OK).To(BeFalse())
			Expect(res.Err).To(MatchError(healthpoller.ErrClipboard))
		})
	})

	Describe("CopyVia", func() {
		It("should return what the bound trigger copied", func() {
			target.set(http.StatusOK, `{"service":"shop"}`)
			poller.Bind(ctx)

			res, found := poller.CopyVia(ctx, healthpoller.AttrCopy)
			Expect(found).To(BeTrue())
			Expect(res.OK).To(BeTrue())
			Expect(res.Text).To(ContainSubstring(`"service": "shop"`))
			Expect(board.Text()).To(Equal(res.Text))
		})

		It("should pass clipboard failures through the trigger", func() {
			poller.Bind(ctx)
			board.Fail(errors.New("denied"))

			res, found := poller.CopyVia(ctx, healthpoller.AttrCopy2)
			Expect(found).To(BeTrue())
			Expect(res.OK).To(BeFalse())
			Expect(res.Err).To(MatchError(healthpoller.ErrClipboard))
		})

		It("should copy nothing before Bind", func() {
			_, found := poller.CopyVia(ctx, healthpoller.AttrCopy)
			Expect(found).To(BeFalse())
			Expect(board.Writes()).To(BeEmpty())
		})

		It("should copy nothing when the page has no copy button", func() {
			page, err := dom.ParseString(`<main data-health-page><button data-health-refresh>r</button><pre data-health-json>{}</pre></main>`)
			Expect(err).NotTo(HaveOccurred())
			p, err := healthpoller.New(page, healthpoller.NewFetcher(server.Client(), quietLogger()), quietLogger(), healthpoller.Options{BaseURL: server.URL, Clipboard: board})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Bind(ctx)).To(BeTrue())

			_, found := p.CopyVia(ctx, healthpoller.AttrCopy)
			Expect(found).To(BeFalse())
			Expect(p.Trigger(ctx, healthpoller.AttrRefresh)).To(BeTrue())
			Expect(board.Writes()).To(BeEmpty())
		})
	})

	Describe("metrics", func() {
		It("should emit refresh and copy events", func() {
			collector := metrics.NewCollector(16, quietLogger())
			runCtx, cancel := context.WithCancel(ctx)
			DeferCleanup(cancel)
			collector.Start(runCtx)

			p, err := healthpoller.New(doc, healthpoller.NewFetcher(server.Client(), quietLogger()), quietLogger(), healthpoller.Options{
				BaseURL:   server.URL,
				Clipboard: board,
				Collector: collector,
			})
			Expect(err).NotTo(HaveOccurred())

			p.Refresh(ctx)
			p.Copy(ctx)

			Eventually(func() int64 { return collector.Snapshot().Completed }).Should(BeEquivalentTo(1))
			Eventually(func() int64 { return collector.Snapshot().Copies }).Should(BeEquivalentTo(1))
			Expect(collector.Snapshot().Healthy).To(BeTrue())
		})
	})

	Describe("WriteText", func() {
		It("should print the status and the checks table", func() {
			target.set(http.StatusOK, `{"service":"shop","checks":{"db":true,"cache":false},"timings_ms":{"db":12},"errors":{"cache":"timeout"}}`)
			poller.Refresh(ctx)

			var buf bytes.Buffer
			Expect(poller.WriteText(&buf)).To(Succeed())

			out := buf.String()
			Expect(out).To(MatchRegexp(`Status:\s+Healthy`))
			Expect(out).To(MatchRegexp(`Service:\s+shop`))
			Expect(out).To(MatchRegexp(`Env:\s+—`))
			Expect(out).To(ContainSubstring("CHECK"))
			Expect(out).To(MatchRegexp(`db\s+OK\s+12 ms\s+—`))
			Expect(out).To(MatchRegexp(`cache\s+Fail\s+—\s+timeout`))
		})
	})
})
