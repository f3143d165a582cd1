package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sarchlab/netsync/timing"
)

type fakeSession struct {
	Name  string
	Peers int
}

type fakeTarget struct {
	now      timing.VTimeInSec
	paused   bool
	sessions map[string]*fakeSession
}

func (t *fakeTarget) Now() timing.VTimeInSec { return t.now }
func (t *fakeTarget) Pause()                 { t.paused = true }
func (t *fakeTarget) Continue()              { t.paused = false }
func (t *fakeTarget) Paused() bool           { return t.paused }

func (t *fakeTarget) SessionNames() []string {
	return []string{"host", "client0"}
}

func (t *fakeTarget) Inspect(name string, fn func(any)) bool {
	s, ok := t.sessions[name]
	if !ok {
		return false
	}

	fn(s)

	return true
}

var _ = Describe("Monitor", func() {
	var (
		target  *fakeTarget
		monitor *Monitor
		reg     *prometheus.Registry
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		monitor.Router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		target = &fakeTarget{
			now: 0.25,
			sessions: map[string]*fakeSession{
				"host":    {Name: "host", Peers: 2},
				"client0": {Name: "client0"},
			},
		}

		reg = prometheus.NewRegistry()
		promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "netsync_test_total",
			Help: "test counter",
		}).Add(3)

		monitor = NewMonitor().WithProfileDuration(10 * time.Millisecond)
		monitor.RegisterTarget(target)
		monitor.RegisterGatherer(reg)
	})

	It("should report the current time", func() {
		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := nowRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Now).To(Equal(0.25))
		Expect(rsp.Paused).To(BeFalse())
	})

	It("should pause and continue the target", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(target.paused).To(BeTrue())

		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		Expect(target.paused).To(BeFalse())
	})

	It("should list sessions", func() {
		rec := get("/api/sessions")

		names := []string{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"host", "client0"}))
	})

	It("should serialize a session", func() {
		rec := get("/api/session/host")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should return 404 for an unknown session", func() {
		rec := get("/api/session/nobody")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject a malformed field request", func() {
		rec := get("/api/field/" + url.PathEscape("{not json"))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should return 404 for a field of an unknown session", func() {
		req := `{"session_name":"nobody","field_name":"Peers"}`
		rec := get("/api/field/" + url.PathEscape(req))

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should list progress bars", func() {
		bar := monitor.CreateProgressBar("run", 10)
		bar.IncrementFinished(4)
		done := monitor.CreateProgressBar("done", 1)
		monitor.CompleteProgressBar(done)

		rec := get("/api/progress")

		bars := []map[string]any{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("run"))
		Expect(bars[0]["finished"]).To(BeNumerically("==", 4))
		Expect(bars[0]["total"]).To(BeNumerically("==", 10))
		Expect(bars[0]["id"]).To(Equal(bar.ID))
	})

	It("should report resource usage", func() {
		rec := get("/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := resourceRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a cpu profile", func() {
		rec := get("/api/profile")

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should expose metrics", func() {
		rec := get("/metrics")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("netsync_test_total 3"))
	})

	It("should serve the page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should refuse low port numbers", func() {
		monitor.WithPortNumber(80)

		Expect(monitor.portNumber).To(Equal(0))
	})

	It("should fail to start without a target", func() {
		_, err := NewMonitor().StartServer()

		Expect(err).To(HaveOccurred())
	})

	It("should start and stop the server", func() {
		u, err := monitor.StartServer()
		Expect(err).ToNot(HaveOccurred())
		Expect(u).To(HavePrefix("http://localhost:"))

		rsp, err := http.Get(u + "/api/now")
		Expect(err).ToNot(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		Expect(monitor.Stop(context.Background())).To(Succeed())
	})
})
