package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("HookableBase", func() {
	var (
		mockCtrl *gomock.Controller
		hookable *HookableBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hookable = &HookableBase{}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should invoke registered hooks in order", func() {
		hook1 := NewMockHook(mockCtrl)
		hook2 := NewMockHook(mockCtrl)
		pos := &HookPos{Name: "Pos"}
		ctx := HookCtx{Domain: hookable, Pos: pos, Item: 1}

		hookable.AcceptHook(hook1)
		hookable.AcceptHook(hook2)

		gomock.InOrder(
			hook1.EXPECT().Func(ctx),
			hook2.EXPECT().Func(ctx),
		)

		hookable.InvokeHook(ctx)

		Expect(hookable.NumHooks()).To(Equal(2))
		Expect(hookable.Hooks()).To(HaveLen(2))
	})

	It("should panic when the same hook is registered twice", func() {
		hook := NewMockHook(mockCtrl)

		hookable.AcceptHook(hook)

		Expect(func() { hookable.AcceptHook(hook) }).To(Panic())
	})

	It("should adapt functions", func() {
		count := 0
		hookable.AcceptHook(HookFunc(func(HookCtx) { count++ }))
		hookable.AcceptHook(HookFunc(func(HookCtx) { count += 10 }))

		hookable.InvokeHook(HookCtx{})

		Expect(count).To(Equal(11))
	})
})
