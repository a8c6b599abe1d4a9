package simulation

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sarchlab/pdevs/models/basic"
	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/tracing"
)

func genToAcc() *modeling.Coupled {
	top, err := modeling.MakeCoupledBuilder().
		WithSubmodels(
			basic.MakeGeneratorBuilder().Build("Gen"),
			basic.NewAccumulator("Acc"),
		).
		WithIC("Gen", "out", "Acc", "add").
		Build("Top")
	Expect(err).NotTo(HaveOccurred())

	return top
}

func countRows(db *sql.DB, query string, args ...any) int {
	var n int
	Expect(db.QueryRow(query, args...).Scan(&n)).To(Succeed())

	return n
}

var _ = Describe("Simulation", func() {
	var builder Builder

	BeforeEach(func() {
		builder = MakeBuilder().
			WithoutMonitoring().
			WithMetricsRegisterer(prometheus.NewRegistry())
	})

	It("should run a model", func() {
		s, err := builder.WithoutRecording().Build(genToAcc())
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		now, err := s.Run(context.Background(), 3)

		Expect(err).NotTo(HaveOccurred())
		Expect(now).To(BeNumerically("==", 3))
		Expect(s.GetRunner().Cycles()).To(Equal(uint64(3)))
		Expect(testutil.ToFloat64(s.GetMetrics().Cycles)).To(Equal(3.0))
		Expect(s.GetTransitionCounter().KindTotal(engine.Internal)).
			To(Equal(uint64(3)))
		Expect(s.GetTransitionCounter().KindTotal(engine.External)).
			To(Equal(uint64(3)))
		Expect(s.GetTransitionCounter().TotalDeliveries()).To(Equal(uint64(3)))
		Expect(s.GetDataRecorder()).To(BeNil())
		Expect(s.GetMonitor()).To(BeNil())
	})

	It("should run in parallel", func() {
		s, err := builder.WithoutRecording().
			WithParallelEngine().
			WithWorkers(2).
			Build(genToAcc())
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		_, err = s.Run(context.Background(), 3)

		Expect(err).NotTo(HaveOccurred())
		Expect(testutil.ToFloat64(s.GetMetrics().Deliveries)).To(Equal(3.0))
	})

	It("should write a text trace", func() {
		buf := new(bytes.Buffer)

		s, err := builder.WithoutRecording().
			WithTraceWriter(buf, tracing.CategoryGlobalTime).
			Build(genToAcc())
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		_, err = s.Run(context.Background(), 2)

		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(Equal("Global time: 1\nGlobal time: 2\n"))
	})

	It("should record the trace into a database", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")

		s, err := builder.WithOutputFileName(path).Build(genToAcc())
		Expect(err).NotTo(HaveOccurred())

		_, err = s.Run(context.Background(), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Terminate()).To(Succeed())
		Expect(s.Terminate()).To(Succeed())

		db, err := sql.Open("sqlite3", path+".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		Expect(countRows(db,
			"SELECT COUNT(*) FROM pdevs_transitions WHERE Kind = ?",
			"initial")).To(Equal(2))
		Expect(countRows(db,
			"SELECT COUNT(*) FROM pdevs_transitions WHERE Kind != ?",
			"initial")).To(Equal(4))
		Expect(countRows(db,
			"SELECT COUNT(*) FROM pdevs_routings")).To(Equal(2))
		Expect(countRows(db,
			"SELECT COUNT(*) FROM exec_info WHERE Property = ?",
			"Simulation ID")).To(Equal(1))
	})

	It("should report configuration errors", func() {
		gen := basic.MakeGeneratorBuilder().Build("Gen")

		c1, err := modeling.MakeCoupledBuilder().WithSubmodels(gen).Build("C1")
		Expect(err).NotTo(HaveOccurred())
		c2, err := modeling.MakeCoupledBuilder().WithSubmodels(gen).Build("C2")
		Expect(err).NotTo(HaveOccurred())
		top, err := modeling.MakeCoupledBuilder().
			WithSubmodels(c1, c2).
			Build("Top")
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "trace")
		s, err := builder.WithOutputFileName(path).Build(top)

		Expect(s).To(BeNil())
		Expect(err).To(MatchError(engine.ErrSharedModel))
	})

	It("should reject a monitor port without monitoring", func() {
		Expect(func() {
			_, _ = builder.WithMonitorPort(8080).Build(genToAcc())
		}).To(Panic())
	})

	It("should reject an output file without recording", func() {
		Expect(func() {
			_, _ = builder.WithoutRecording().
				WithOutputFileName("trace").
				Build(genToAcc())
		}).To(Panic())
	})

	It("should serve the run through the monitor", func() {
		s, err := MakeBuilder().
			WithoutRecording().
			WithMetricsRegisterer(prometheus.NewRegistry()).
			Build(genToAcc())
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.MonitorPort()).To(BeNumerically(">", 0))

		_, err = s.Run(context.Background(), 2)
		Expect(err).NotTo(HaveOccurred())

		rsp, err := http.Get(fmt.Sprintf(
			"http://localhost:%d/api/progress", s.MonitorPort()))
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		var bars []map[string]any
		Expect(json.NewDecoder(rsp.Body).Decode(&bars)).To(Succeed())
		Expect(bars).To(BeEmpty())
	})
})
