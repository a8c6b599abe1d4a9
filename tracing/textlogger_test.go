package tracing

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/modeling"
)

type failingWriter struct {
	writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("sink closed")
}

var _ = Describe("TextLogger", func() {
	var (
		sink   *strings.Builder
		logger *TextLogger
	)

	BeforeEach(func() {
		sink = new(strings.Builder)
	})

	run := func(opts ...engine.Option) {
		opts = append(opts, engine.WithHooks(TraceHook(nil, logger)))

		runner, err := engine.NewRunner(inboxCleanupNetwork(), opts...)
		Expect(err).NotTo(HaveOccurred())

		_, err = runner.AdvanceTo(context.Background(), 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(logger.Err()).NotTo(HaveOccurred())
	}

	Context("when a value crosses nested coupled models", func() {
		const (
			accumulator = "State for model Top.C3.C2.Acc is "
			initial     = accumulator + "[0, 0]"
			afterOne    = accumulator + "[1, 0]"
		)

		BeforeEach(func() {
			logger = NewTextLogger(sink, CategoryState|CategoryGlobalTime)
		})

		It("should report each accumulator state once", func() {
			run()

			out := sink.String()
			Expect(strings.Count(out, initial)).To(Equal(1))
			Expect(strings.Count(out, afterOne)).To(Equal(1))
			Expect(strings.Count(out, initial) + strings.Count(out, afterOne)).
				To(Equal(strings.Count(out, accumulator)))
		})

		It("should report each accumulator state once in parallel mode", func() {
			run(engine.WithParallel())

			out := sink.String()
			Expect(strings.Count(out, initial) + strings.Count(out, afterOne)).
				To(Equal(strings.Count(out, accumulator)))
		})

		It("should report the global time of every cycle", func() {
			run()

			Expect(sink.String()).To(ContainSubstring("Global time: 1\n"))
			Expect(strings.Count(sink.String(), "Global time: 1\n")).
				To(Equal(2))
			Expect(sink.String()).To(ContainSubstring("Global time: 5\n"))
			Expect(sink.String()).NotTo(ContainSubstring("Global time: 6"))
		})
	})

	It("should only write the selected categories", func() {
		logger = NewTextLogger(sink, CategoryRouting)

		run()

		lines := strings.Split(strings.TrimSpace(sink.String()), "\n")
		Expect(lines).To(ContainElement(
			"Message 1 routed from Top.C1.Filter.out to Top.C3.C2.Acc.add"))
		Expect(sink.String()).NotTo(ContainSubstring("State for model"))
		Expect(sink.String()).NotTo(ContainSubstring("Global time"))
	})

	It("should stop writing after the sink fails", func() {
		w := &failingWriter{}
		logger = NewTextLogger(w, CategoryAll)

		logger.GlobalTime(1)
		logger.Transition(engine.TransitionInfo{Model: "Top.Gen"})
		logger.Routed(modeling.Msg{}, engine.RoutingInfo{})

		Expect(logger.Err()).To(MatchError("sink closed"))
		Expect(w.writes).To(Equal(1))
	})

	It("should refuse to collect twice from the same runner", func() {
		logger = NewTextLogger(sink, CategoryAll)

		runner, err := engine.NewRunner(inboxCleanupNetwork())
		Expect(err).NotTo(HaveOccurred())

		CollectTrace(runner, logger)

		Expect(func() { CollectTrace(runner, logger) }).To(Panic())
	})
})

var _ = DescribeTable("ParseCategories",
	func(s string, expected Category, ok bool) {
		c, err := ParseCategories(s)

		if !ok {
			Expect(err).To(HaveOccurred())
			return
		}

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(expected))
	},
	Entry("all", "all", CategoryAll, true),
	Entry("combined", "time, Routing", CategoryGlobalTime|CategoryRouting, true),
	Entry("none", "none", Category(0), true),
	Entry("empty", "", Category(0), true),
	Entry("unknown", "time,events", Category(0), false),
)
