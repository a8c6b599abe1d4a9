package naming

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Name", func() {
	It("should parse name", func() {
		name, err := ParseName("Top[0].Gen[0]")

		Expect(err).ToNot(HaveOccurred())
		Expect(name.Tokens[0].ElemName).To(Equal("Top"))
		Expect(name.Tokens[0].Index).To(Equal([]int{0}))
		Expect(name.Tokens[1].ElemName).To(Equal("Gen"))
		Expect(name.Tokens[1].Index).To(Equal([]int{0}))
	})

	It("should parse multi-dimensional index", func() {
		name, err := ParseName("Top[0][1].Gen[0][1]")

		Expect(err).ToNot(HaveOccurred())
		Expect(name.Tokens[0].Index).To(Equal([]int{0, 1}))
		Expect(name.Tokens[1].Index).To(Equal([]int{0, 1}))
	})

	It("should reject an empty name", func() {
		Expect(Validate("")).To(MatchError(ErrInvalidName))
		Expect(func() { NameMustBeValid("") }).To(Panic())
	})

	It("should reject underscores and dashes", func() {
		Expect(Validate("Gen_0")).To(MatchError(ErrInvalidName))
		Expect(Validate("Gen-0")).To(MatchError(ErrInvalidName))
	})

	It("should reject names that are not capitalized", func() {
		Expect(Validate("gen")).To(MatchError(ErrInvalidName))
	})

	It("should reject unpaired square brackets", func() {
		Expect(Validate("Gen[0")).To(MatchError(ErrInvalidName))
		Expect(Validate("Gen0]")).To(MatchError(ErrInvalidName))
	})

	It("should reject non-integer indices", func() {
		Expect(Validate("Gen[a]")).To(MatchError(ErrInvalidName))
	})

	It("should reject empty elements", func() {
		Expect(Validate("Top..Gen")).To(MatchError(ErrInvalidName))
	})

	It("should accept valid names", func() {
		Expect(Validate("Top.C1.Gen[3]")).To(Succeed())
	})

	It("should build name", func() {
		Expect(BuildName("", "Top")).To(Equal("Top"))
		Expect(BuildName("Top", "Gen")).To(Equal("Top.Gen"))
	})

	It("should build name with index", func() {
		Expect(BuildNameWithIndex("", "Gen", 0)).To(Equal("Gen[0]"))
		Expect(BuildNameWithIndex("Top", "Gen", 2)).To(Equal("Top.Gen[2]"))
	})
})
