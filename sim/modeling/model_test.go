package modeling

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Confluent", func() {
	It("should run internal first by default", func() {
		r := newRelay("Relay")

		Expect(Confluent(r, NewInbox())).To(Succeed())

		Expect(r.calls).To(Equal([]string{"internal", "external@0"}))
	})

	It("should follow the order picked by the model", func() {
		r := orderedRelay{relay: newRelay("Relay")}
		r.order = ExternalFirst

		Expect(Confluent(r, NewInbox())).To(Succeed())

		Expect(r.calls).To(Equal([]string{"external@0", "internal"}))
	})

	It("should let the model override the transition", func() {
		r := customRelay{relay: newRelay("Relay")}

		Expect(Confluent(r, NewInbox())).To(Succeed())

		Expect(r.calls).To(Equal([]string{"confluent"}))
	})
})

var _ = Describe("AtomicBase", func() {
	It("should require valid names", func() {
		Expect(func() { NewAtomicBase("relay") }).To(Panic())
		Expect(NewAtomicBase("Relay").Name()).To(Equal("Relay"))
	})
})
