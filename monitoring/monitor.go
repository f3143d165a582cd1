// Package monitoring serves a running scenario over HTTP so that it can be
// paused, resumed and inspected while it runs.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/sarchlab/netsync/metrics"
	"github.com/sarchlab/netsync/monitoring/web"
	"github.com/sarchlab/netsync/timing"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Target is what the monitor controls. *simulation.Runner satisfies it.
type Target interface {
	Now() timing.VTimeInSec
	Pause()
	Continue()
	Paused() bool
	SessionNames() []string
	Inspect(name string, fn func(any)) bool
}

// Monitor turns a scenario into a web server.
type Monitor struct {
	target          Target
	gatherer        prometheus.Gatherer
	portNumber      int
	profileDuration time.Duration
	logger          *slog.Logger

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
	url    string
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
		logger:          slog.New(slog.DiscardHandler),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// rejected in favour of a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("Monitor port not allowed, using a random port",
			slog.Int("port", portNumber))

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(l *slog.Logger) *Monitor {
	m.logger = l
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// RegisterTarget sets the scenario being monitored.
func (m *Monitor) RegisterTarget(t Target) {
	m.target = t
}

// RegisterGatherer makes the monitor serve the metrics in g at /metrics.
func (m *Monitor) RegisterGatherer(g prometheus.Gatherer) {
	m.gatherer = g
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the page.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/continue", m.continueTarget)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/sessions", m.listSessions)
	r.HandleFunc("/api/session/{name}", m.sessionDetails)
	r.HandleFunc("/api/field/{json}", m.fieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	if m.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(m.gatherer))
	}

	r.PathPrefix("/").Handler(http.FileServer(web.Assets(m.logger)))

	return r
}

// StartServer listens on the configured port and serves in the
// background. It returns the URL of the monitor.
func (m *Monitor) StartServer() (string, error) {
	if m.target == nil {
		return "", errors.New("monitoring: no target registered")
	}

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitoring: listen: %w", err)
	}

	m.url = fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Monitor server stopped", slog.Any("error", err))
		}
	}()

	return m.url, nil
}

// OpenBrowser opens the monitor page in the default browser.
func (m *Monitor) OpenBrowser() error {
	if m.url == "" {
		return errors.New("monitoring: server not started")
	}

	return browser.OpenURL(m.url)
}

// Stop shuts the server down.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.target.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueTarget(w http.ResponseWriter, _ *http.Request) {
	m.target.Continue()
	w.WriteHeader(http.StatusOK)
}

type nowRsp struct {
	Now    float64 `json:"now"`
	Paused bool    `json:"paused"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, nowRsp{
		Now:    float64(m.target.Now()),
		Paused: m.target.Paused(),
	})
}

func (m *Monitor) listSessions(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.target.SessionNames())
}

func (m *Monitor) sessionDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m.inspectOr404(w, name, func(v any) error {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(v)
		serializer.SetMaxDepth(1)

		return serializer.Serialize(w)
	})
}

type fieldReq struct {
	SessionName string `json:"session_name,omitempty"`
	FieldName   string `json:"field_name,omitempty"`
}

func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, "invalid field request: "+err.Error(), http.StatusBadRequest)
		return
	}

	fields := strings.Split(req.FieldName, ".")

	m.inspectOr404(w, req.SessionName, func(v any) error {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(v)
		serializer.SetMaxDepth(1)

		if err := serializer.SetEntryPoint(fields); err != nil {
			return err
		}

		return serializer.Serialize(w)
	})
}

// inspectOr404 runs fn on the named session and writes a 404 if there is
// none. Serialization errors end up in the log; the response may already
// be partially written by then.
func (m *Monitor) inspectOr404(
	w http.ResponseWriter,
	name string,
	fn func(any) error,
) {
	var fnErr error

	found := m.target.Inspect(name, func(v any) {
		fnErr = fn(v)
	})

	if !found {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	if fnErr != nil {
		m.logger.Warn("Failed to serialize session",
			slog.String("session", name),
			slog.Any("error", fnErr))
	}
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]*ProgressBar, len(m.progressBars))
	copy(bars, m.progressBars)
	m.progressBarsLock.Unlock()

	type barRsp struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		StartTime time.Time `json:"start_time"`
		Total     uint64    `json:"total"`
		Finished  uint64    `json:"finished"`
	}

	rsp := make([]barRsp, 0, len(bars))
	for _, b := range bars {
		finished, total := b.Progress()
		rsp = append(rsp, barRsp{
			ID:        b.ID,
			Name:      b.Name,
			StartTime: b.StartTime,
			Total:     total,
			Finished:  finished,
		})
	}

	m.writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(b); err != nil {
		m.logger.Debug("Failed to write response", slog.Any("error", err))
	}
}
