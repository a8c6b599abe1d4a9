// Package monitoring turns a running simulation into a web server that allows
// inspecting and controlling the run from outside.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/sarchlab/pdevs/monitoring/web"
	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/id"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"
)

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	runner     *engine.Runner
	metrics    *Metrics
	portNumber int
	server     *http.Server

	pausedLock sync.Mutex
	paused     bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		logrus.Warnf("Port number %d is assigned to the monitoring server, "+
			"which is not allowed. Using a random port instead.", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterRunner registers the runner that drives the simulation.
func (m *Monitor) RegisterRunner(r *engine.Runner) {
	m.runner = r
}

// RegisterMetrics makes the metrics available under /metrics.
func (m *Monitor) RegisterMetrics(metrics *Metrics) {
	m.metrics = metrics
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
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

// Router returns the handler that serves the monitoring API and the web
// page.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseRunner)
	r.HandleFunc("/api/continue", m.continueRunner)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_models", m.listModels)
	r.HandleFunc("/api/model/{name}", m.listModelDetails)
	r.HandleFunc("/api/state/{name}", m.modelState)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	if m.metrics != nil {
		r.Handle("/metrics", m.metrics.Handler())
	}

	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns the port that it
// listens on.
func (m *Monitor) StartServer() (int, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return 0, err
	}

	port := listener.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(os.Stderr,
		"Monitoring simulation with http://localhost:%d\n", port)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("monitoring server stopped")
		}
	}()

	return port, nil
}

// StopServer shuts the web server down. A paused runner is resumed.
func (m *Monitor) StopServer() error {
	m.pausedLock.Lock()
	if m.paused {
		m.runner.Continue()
		m.paused = false
	}
	m.pausedLock.Unlock()

	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

func (m *Monitor) pauseRunner(w http.ResponseWriter, _ *http.Request) {
	m.pausedLock.Lock()
	defer m.pausedLock.Unlock()

	if !m.paused {
		m.runner.Pause()
		m.paused = true
	}

	writeJSON(w, map[string]bool{"paused": true})
}

func (m *Monitor) continueRunner(w http.ResponseWriter, _ *http.Request) {
	m.pausedLock.Lock()
	defer m.pausedLock.Unlock()

	if m.paused {
		m.runner.Continue()
		m.paused = false
	}

	writeJSON(w, map[string]bool{"paused": false})
}

type nowRsp struct {
	Now    float64  `json:"now"`
	Next   *float64 `json:"next"`
	Cycles uint64   `json:"cycles"`
	Paused bool     `json:"paused"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.pausedLock.Lock()
	defer m.pausedLock.Unlock()

	paused := m.paused

	rsp := nowRsp{
		Now:    float64(m.runner.Now()),
		Cycles: m.runner.Cycles(),
		Paused: paused,
	}

	// The next time cannot be read while the run is held.
	if !paused {
		next := m.runner.NextTime()
		if !timing.IsInfinite(next) {
			v := float64(next)
			rsp.Next = &v
		}
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.runner.Models())
}

func (m *Monitor) listModelDetails(w http.ResponseWriter, r *http.Request) {
	model := m.findModelOr404(w, mux.Vars(r)["name"])
	if model == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(model)
	serializer.SetMaxDepth(1)

	m.holdRunner(func() {
		err := serializer.Serialize(w)
		if err != nil {
			logrus.WithError(err).Warn("failed to serialize model")
		}
	})
}

type stateRsp struct {
	Model string `json:"model"`
	State string `json:"state"`
}

func (m *Monitor) modelState(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	model := m.findModelOr404(w, name)
	if model == nil {
		return
	}

	reporter, ok := model.(modeling.StateReporter)
	if !ok {
		http.Error(w, "Model does not report its state",
			http.StatusMethodNotAllowed)
		return
	}

	var state string

	m.holdRunner(func() {
		state = fmt.Sprint(reporter.State())
	})

	writeJSON(w, stateRsp{Model: name, State: state})
}

type fieldReq struct {
	ModelName string `json:"model_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	model := m.findModelOr404(w, req.ModelName)
	if model == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(model)
	serializer.SetMaxDepth(1)

	m.holdRunner(func() {
		err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = serializer.Serialize(w)
		if err != nil {
			logrus.WithError(err).Warn("failed to serialize field")
		}
	})
}

// holdRunner runs f between two cycles, so that f sees no model in the
// middle of a transition.
func (m *Monitor) holdRunner(f func()) {
	m.pausedLock.Lock()
	defer m.pausedLock.Unlock()

	if !m.paused {
		m.runner.Pause()
		defer m.runner.Continue()
	}

	f()
}

func (m *Monitor) findModelOr404(
	w http.ResponseWriter,
	name string,
) modeling.Model {
	model, found := m.runner.ModelByName(name)
	if !found {
		http.Error(w, "Model not found", http.StatusNotFound)
		return nil
	}

	return model
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
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

	memorySize, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(data)
	if err != nil {
		logrus.WithError(err).Debug("failed to write response")
	}
}
