package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/pdevs/sim/hooking"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
	"go.uber.org/mock/gomock"
)

// recorder keeps what the runner reports through hooks.
type recorder struct {
	lock        sync.Mutex
	times       []timing.VTimeInSec
	transitions map[string][]TransitionKind
	elapsed     map[string][]timing.VTimeInSec
	initial     map[string]any
	routed      map[string]int
}

func newRecorder() *recorder {
	return &recorder{
		transitions: make(map[string][]TransitionKind),
		elapsed:     make(map[string][]timing.VTimeInSec),
		initial:     make(map[string]any),
		routed:      make(map[string]int),
	}
}

func (r *recorder) Func(ctx hooking.HookCtx) {
	r.lock.Lock()
	defer r.lock.Unlock()

	switch ctx.Pos {
	case HookPosGlobalTime:
		r.times = append(r.times, ctx.Item.(timing.VTimeInSec))
	case HookPosInitialState:
		info := ctx.Detail.(TransitionInfo)
		r.initial[info.Model] = info.State
	case HookPosTransition:
		info := ctx.Detail.(TransitionInfo)
		r.transitions[info.Model] = append(r.transitions[info.Model], info.Kind)
		r.elapsed[info.Model] = append(r.elapsed[info.Model], info.Elapsed)
	case HookPosMsgRouted:
		info := ctx.Detail.(RoutingInfo)
		r.routed[info.Src.String()+" -> "+info.Dst.String()]++
	}
}

var _ = Describe("Runner", func() {
	var (
		ctx context.Context
		rec *recorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		rec = newRecorder()
	})

	Context("with a source and a sink", func() {
		var (
			src    *ticker
			dst    *sink
			top    *modeling.Coupled
			runner *Runner
		)

		BeforeEach(func() {
			src = newTicker("Src", 1, 3)
			dst = newSink("Dst")
			top = mustBuild(modeling.MakeCoupledBuilder().
				WithSubmodels(src, dst).
				WithIC("Src", "Out", "Dst", "In"), "Top")

			var err error
			runner, err = NewRunner(top, WithHooks(rec))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should report the initial states", func() {
			Expect(rec.initial).To(Equal(map[string]any{
				"Top.Src": 0,
				"Top.Dst": 0,
			}))
		})

		It("should list the models", func() {
			Expect(runner.Models()).To(Equal(
				[]string{"Top", "Top.Src", "Top.Dst"}))

			m, found := runner.ModelByName("Top.Dst")
			Expect(found).To(BeTrue())
			Expect(m).To(BeIdenticalTo(dst))

			_, found = runner.ModelByName("Dst")
			Expect(found).To(BeFalse())
		})

		It("should run until the models are passive", func() {
			now, err := runner.AdvanceTo(ctx, 100)

			Expect(err).NotTo(HaveOccurred())
			Expect(now).To(Equal(3.0))
			Expect(runner.Cycles()).To(Equal(uint64(3)))
			Expect(timing.IsInfinite(runner.NextTime())).To(BeTrue())
			Expect(dst.sum).To(Equal(6))
			Expect(dst.sizes).To(Equal([]int{1, 1, 1}))
			Expect(rec.times).To(Equal([]timing.VTimeInSec{1, 2, 3}))
			Expect(rec.routed).To(Equal(map[string]int{
				"Top.Src.Out -> Top.Dst.In": 3,
			}))
		})

		It("should stop before events later than the stop time", func() {
			now, err := runner.AdvanceTo(ctx, 2.5)

			Expect(err).NotTo(HaveOccurred())
			Expect(now).To(Equal(2.0))
			Expect(dst.sum).To(Equal(3))
			Expect(runner.NextTime()).To(Equal(3.0))

			now, err = runner.AdvanceTo(ctx, 2.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(now).To(Equal(2.0))

			now, err = runner.AdvanceTo(ctx, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(now).To(Equal(3.0))
			Expect(dst.sum).To(Equal(6))
		})

		It("should apply exactly one transition per active model per cycle", func() {
			_, err := runner.AdvanceTo(ctx, 100)

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.transitions["Top.Src"]).To(Equal(
				[]TransitionKind{Internal, Internal, Internal}))
			Expect(rec.transitions["Top.Dst"]).To(Equal(
				[]TransitionKind{External, External, External}))
		})

		It("should leave every inbox empty between cycles", func() {
			checked := 0

			runner.AcceptHook(hooking.HookFunc(func(hctx hooking.HookCtx) {
				if hctx.Pos != HookPosGlobalTime {
					return
				}

				runner.root.walk(func(p processor) {
					if s, ok := p.(*simulator); ok {
						Expect(s.inbox.Empty()).To(BeTrue())
						checked++
					}
				})
			}))

			_, err := runner.AdvanceTo(ctx, 100)

			Expect(err).NotTo(HaveOccurred())
			Expect(checked).To(Equal(6))
		})

		It("should stop when the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			now, err := runner.AdvanceTo(canceled, 100)

			Expect(err).To(MatchError(context.Canceled))
			Expect(now).To(Equal(0.0))
			Expect(runner.Cycles()).To(BeZero())
		})

		It("should hold cycles while paused", func() {
			runner.Pause()

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()

				_, err := runner.AdvanceTo(ctx, 100)
				Expect(err).NotTo(HaveOccurred())
				close(done)
			}()

			Consistently(runner.Cycles, 50*time.Millisecond).
				Should(BeZero())

			runner.Continue()

			Eventually(done).Should(BeClosed())
			Expect(runner.Cycles()).To(Equal(uint64(3)))
		})
	})

	It("should apply the confluent transition", func() {
		src := newTicker("Src", 1, 2)
		dst := newSink("Dst")
		dst.period = 1
		top := mustBuild(modeling.MakeCoupledBuilder().
			WithSubmodels(src, dst).
			WithIC("Src", "Out", "Dst", "In"), "Top")

		runner, err := NewRunner(top, WithHooks(rec))
		Expect(err).NotTo(HaveOccurred())

		_, err = runner.AdvanceTo(ctx, 3)

		Expect(err).NotTo(HaveOccurred())
		Expect(rec.transitions["Top.Dst"]).To(Equal(
			[]TransitionKind{Confluent, Confluent, Internal}))
		Expect(dst.kinds).To(Equal([]string{
			"internal", "external",
			"internal", "external",
			"internal",
		}))
		Expect(dst.sum).To(Equal(3))
		Expect(dst.elapsed).To(Equal([]timing.VTimeInSec{0, 0}))
		Expect(rec.elapsed["Top.Dst"]).To(Equal([]timing.VTimeInSec{0, 0, 0}))
	})

	It("should pass the time since the last transition", func() {
		src := newTicker("Src", 1.5, 3)
		dst := newSink("Dst")
		top := mustBuild(modeling.MakeCoupledBuilder().
			WithSubmodels(src, dst).
			WithIC("Src", "Out", "Dst", "In"), "Top")

		runner, err := NewRunner(top, WithHooks(rec))
		Expect(err).NotTo(HaveOccurred())

		_, err = runner.AdvanceTo(ctx, 10)

		Expect(err).NotTo(HaveOccurred())
		Expect(dst.elapsed).To(Equal([]timing.VTimeInSec{1.5, 1.5, 1.5}))
		Expect(rec.elapsed["Top.Dst"]).To(Equal(
			[]timing.VTimeInSec{1.5, 1.5, 1.5}))
	})

	It("should measure elapsed time from internal transitions too", func() {
		src := newTicker("Src", 1.5, 2)
		dst := newSink("Dst")
		dst.period = 1
		top := mustBuild(modeling.MakeCoupledBuilder().
			WithSubmodels(src, dst).
			WithIC("Src", "Out", "Dst", "In"), "Top")

		runner, err := NewRunner(top, WithHooks(rec))
		Expect(err).NotTo(HaveOccurred())

		_, err = runner.AdvanceTo(ctx, 3.2)

		Expect(err).NotTo(HaveOccurred())
		Expect(rec.transitions["Top.Dst"]).To(Equal([]TransitionKind{
			Internal, External, Internal, External,
		}))
		Expect(dst.elapsed).To(Equal([]timing.VTimeInSec{0.5, 0.5}))
	})

	Context("when a transition fails", func() {
		var (
			bad    *rejecter
			good   *sink
			runner *Runner
		)

		BeforeEach(func() {
			src := newTicker("Src", 1, 2)
			bad = newRejecter("Bad")
			good = newSink("Good")
			top := mustBuild(modeling.MakeCoupledBuilder().
				WithSubmodels(src, bad, good).
				WithIC("Src", "Out", "Bad", "In").
				WithIC("Src", "Out", "Good", "In"), "Top")

			var err error
			runner, err = NewRunner(top, WithHooks(rec))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should empty every inbox", func() {
			_, err := runner.AdvanceTo(ctx, 10)

			Expect(err).To(MatchError(ContainSubstring("boom")))
			runner.root.walk(func(p processor) {
				Expect(p.hasInput()).To(BeFalse(), p.fullName())
			})
		})

		It("should refuse to run again", func() {
			_, first := runner.AdvanceTo(ctx, 10)
			Expect(first).To(HaveOccurred())

			now, err := runner.AdvanceTo(ctx, 10)

			Expect(err).To(Equal(first))
			Expect(now).To(Equal(0.0))
			Expect(runner.Cycles()).To(Equal(uint64(0)))
			Expect(good.sizes).To(BeEmpty())
			Expect(good.sum).To(Equal(0))
		})

		It("should empty every inbox in parallel mode", func() {
			src := newTicker("Src", 1, 2)
			bad = newRejecter("Bad")
			good = newSink("Good")
			top := mustBuild(modeling.MakeCoupledBuilder().
				WithSubmodels(src, bad, good).
				WithIC("Src", "Out", "Bad", "In").
				WithIC("Src", "Out", "Good", "In"), "Top")

			var err error
			runner, err = NewRunner(top, WithParallel(), WithWorkers(2))
			Expect(err).NotTo(HaveOccurred())

			_, err = runner.AdvanceTo(ctx, 10)

			Expect(err).To(HaveOccurred())
			runner.root.walk(func(p processor) {
				Expect(p.hasInput()).To(BeFalse(), p.fullName())
			})

			_, err = runner.AdvanceTo(ctx, 10)
			Expect(err).To(HaveOccurred())
			Expect(len(good.sizes)).To(BeNumerically("<=", 1))
		})
	})

	It("should keep the global time increasing", func() {
		fast := newTicker("Fast", 0.5, 6)
		slow := newTicker("Slow", 1.25, 2)
		top := mustBuild(modeling.MakeCoupledBuilder().
			WithSubmodels(fast, slow), "Top")

		runner, err := NewRunner(top, WithHooks(rec))
		Expect(err).NotTo(HaveOccurred())

		_, err = runner.AdvanceTo(ctx, 100)

		Expect(err).NotTo(HaveOccurred())
		Expect(rec.times).To(Equal([]timing.VTimeInSec{
			0.5, 1, 1.25, 1.5, 2, 2.5, 3,
		}))
	})

	Context("when messages reach a port along several paths", func() {
		var (
			dst *sink
			top *modeling.Coupled
		)

		BeforeEach(func() {
			dst = newSink("D")

			m2 := mustBuild(modeling.MakeCoupledBuilder().
				WithInPorts(
					modeling.NewInPort[int]("X"),
					modeling.NewInPort[int]("Y"),
				).
				WithSubmodels(dst).
				WithEIC("X", "D", "In").
				WithEIC("Y", "D", "In"), "M2")

			m1 := mustBuild(modeling.MakeCoupledBuilder().
				WithInPorts(
					modeling.NewInPort[int]("A"),
					modeling.NewInPort[int]("B"),
				).
				WithSubmodels(m2).
				WithEIC("A", "M2", "X").
				WithEIC("B", "M2", "Y"), "M1")

			top = mustBuild(modeling.MakeCoupledBuilder().
				WithSubmodels(newTicker("G", 1, 2), m1).
				WithIC("G", "Out", "M1", "A").
				WithIC("G", "Out", "M1", "B"), "Top")
		})

		It("should deliver the message once", func() {
			runner, err := NewRunner(top, WithHooks(rec))
			Expect(err).NotTo(HaveOccurred())

			_, err = runner.AdvanceTo(ctx, 100)

			Expect(err).NotTo(HaveOccurred())
			Expect(dst.sizes).To(Equal([]int{1, 1}))
			Expect(dst.sum).To(Equal(3))
			Expect(rec.transitions["Top.M1.M2.D"]).To(Equal(
				[]TransitionKind{External, External}))
			Expect(rec.routed).To(Equal(map[string]int{
				"Top.G.Out -> Top.M1.M2.D.In": 2,
			}))
		})

		It("should deliver the message once in parallel mode", func() {
			runner, err := NewRunner(top, WithParallel(), WithWorkers(2))
			Expect(err).NotTo(HaveOccurred())

			_, err = runner.AdvanceTo(ctx, 100)

			Expect(err).NotTo(HaveOccurred())
			Expect(dst.sizes).To(Equal([]int{1, 1}))
		})
	})

	It("should keep distinct messages from distinct sources", func() {
		dst := newSink("Dst")
		top := mustBuild(modeling.MakeCoupledBuilder().
			WithSubmodels(newTicker("A", 1, 1), newTicker("B", 1, 1), dst).
			WithIC("A", "Out", "Dst", "In").
			WithIC("B", "Out", "Dst", "In"), "Top")

		runner, err := NewRunner(top)
		Expect(err).NotTo(HaveOccurred())

		_, err = runner.AdvanceTo(ctx, 100)

		Expect(err).NotTo(HaveOccurred())
		Expect(dst.sizes).To(Equal([]int{2}))
		Expect(dst.sum).To(Equal(2))
	})

	It("should route through nested coupled models", func() {
		dst := newSink("Dst")
		inner := mustBuild(modeling.MakeCoupledBuilder().
			WithOutPorts(modeling.NewOutPort[int]("Out")).
			WithSubmodels(newTicker("Src", 1, 4)).
			WithEOC("Src", "Out", "Out"), "Inner")
		sinkSide := mustBuild(modeling.MakeCoupledBuilder().
			WithInPorts(modeling.NewInPort[int]("In")).
			WithSubmodels(dst).
			WithEIC("In", "Dst", "In"), "Outer")
		top := mustBuild(modeling.MakeCoupledBuilder().
			WithSubmodels(inner, sinkSide).
			WithIC("Inner", "Out", "Outer", "In"), "Top")

		serial, err := NewRunner(top)
		Expect(err).NotTo(HaveOccurred())

		_, err = serial.AdvanceTo(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(dst.sum).To(Equal(3))

		_, err = serial.AdvanceTo(ctx, 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(dst.sum).To(Equal(10))
		Expect(dst.sizes).To(Equal([]int{1, 1, 1, 1}))
	})

	Context("when the tree is misconfigured", func() {
		It("should reject a model used twice", func() {
			shared := newSink("S")
			a := mustBuild(modeling.MakeCoupledBuilder().
				WithSubmodels(shared), "A")
			b := mustBuild(modeling.MakeCoupledBuilder().
				WithSubmodels(shared), "B")
			top := mustBuild(modeling.MakeCoupledBuilder().
				WithSubmodels(a, b), "Top")

			_, err := NewRunner(top)

			Expect(err).To(MatchError(ErrSharedModel))
		})

		It("should reject models that are neither atomic nor coupled", func() {
			odd := &struct {
				*modeling.AtomicBase
			}{modeling.NewAtomicBase("Odd")}
			top := mustBuild(modeling.MakeCoupledBuilder().
				WithSubmodels(odd), "Top")

			_, err := NewRunner(top)

			Expect(err).To(MatchError(ErrUnsupportedModel))
		})
	})
})

type hookPosMatcher struct {
	pos *hooking.HookPos
}

func hookAt(pos *hooking.HookPos) gomock.Matcher {
	return hookPosMatcher{pos: pos}
}

func (m hookPosMatcher) Matches(x any) bool {
	ctx, ok := x.(hooking.HookCtx)
	return ok && ctx.Pos == m.pos
}

func (m hookPosMatcher) String() string {
	return "is triggered at " + m.pos.Name
}

var _ = Describe("Runner with failing models", func() {
	var (
		mockCtrl *gomock.Controller
		model    *MockAtomic
		out      *modeling.Port
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		model = NewMockAtomic(mockCtrl)
		out = modeling.NewOutPort[int]("Out")

		model.EXPECT().Name().Return("M").AnyTimes()
		model.EXPECT().LookupPort("Out").Return(out, true).AnyTimes()
		model.EXPECT().LookupPort(gomock.Any()).Return(nil, false).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should reject an ill-defined time advance", func() {
		model.EXPECT().TimeAdvance().Return(math.NaN())

		_, err := NewRunner(model)

		Expect(err).To(MatchError(ErrIllDefinedTimeAdvance))
	})

	It("should reject a negative time advance", func() {
		model.EXPECT().TimeAdvance().Return(-1.0)

		_, err := NewRunner(model)

		Expect(err).To(MatchError(ErrIllDefinedTimeAdvance))
	})

	Context("when the model runs", func() {
		var runner *Runner

		BeforeEach(func() {
			model.EXPECT().TimeAdvance().Return(1.0)

			var err error
			runner, err = NewRunner(model)
			Expect(err).NotTo(HaveOccurred())
		})

		expectModelError := func(err error, phase Phase) {
			var me *ModelError

			Expect(errors.As(err, &me)).To(BeTrue())
			Expect(me.Model).To(Equal("M"))
			Expect(me.Time).To(Equal(1.0))
			Expect(me.Phase).To(Equal(phase))
			Expect(runner.Now()).To(Equal(0.0))
		}

		It("should abort on values of the wrong type", func() {
			model.EXPECT().Output().Return(map[string]any{"Out": "one"})

			_, err := runner.AdvanceTo(context.Background(), 10)

			expectModelError(err, PhaseOutput)
			Expect(err).To(MatchError(modeling.ErrPortTypeMismatch))
		})

		It("should abort on unknown ports", func() {
			model.EXPECT().Output().Return(map[string]any{"Nope": 1})

			_, err := runner.AdvanceTo(context.Background(), 10)

			expectModelError(err, PhaseOutput)
			Expect(err).To(MatchError(modeling.ErrUnknownPort))
		})

		It("should abort when a transition fails", func() {
			model.EXPECT().Output().Return(map[string]any{"Out": 1})
			model.EXPECT().InternalTransition().
				Return(errors.New("cannot proceed"))

			_, err := runner.AdvanceTo(context.Background(), 10)

			expectModelError(err, PhaseTransition)
			Expect(err.Error()).To(ContainSubstring("cannot proceed"))
		})

		It("should turn panics into errors", func() {
			model.EXPECT().Output().Return(nil)
			model.EXPECT().InternalTransition().DoAndReturn(func() error {
				panic("boom")
			})

			_, err := runner.AdvanceTo(context.Background(), 10)

			expectModelError(err, PhaseTransition)
			Expect(err.Error()).To(ContainSubstring("boom"))
		})

		It("should abort when the time advance becomes ill-defined", func() {
			model.EXPECT().Output().Return(nil)
			model.EXPECT().InternalTransition().Return(nil)
			model.EXPECT().TimeAdvance().Return(math.NaN())

			_, err := runner.AdvanceTo(context.Background(), 10)

			expectModelError(err, PhaseTimeAdvance)
			Expect(err).To(MatchError(ErrIllDefinedTimeAdvance))
		})

		It("should notify hooks of transitions", func() {
			hook := NewMockHook(mockCtrl)
			runner.AcceptHook(hook)

			model.EXPECT().Output().Return(nil)
			model.EXPECT().InternalTransition().Return(nil)
			model.EXPECT().TimeAdvance().Return(timing.Infinity)

			hook.EXPECT().Func(hookAt(HookPosGlobalTime))
			hook.EXPECT().Func(hookAt(HookPosTransition)).
				Do(func(ctx hooking.HookCtx) {
					info := ctx.Detail.(TransitionInfo)
					Expect(info.Kind).To(Equal(Internal))
					Expect(timing.IsInfinite(info.Next)).To(BeTrue())
				})

			now, err := runner.AdvanceTo(context.Background(), 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(now).To(Equal(1.0))
		})
	})
})
