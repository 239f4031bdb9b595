package token_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cpanato/mattermost-plugin-alertmanager/common/token"
)

var _ = Describe("Secure", func() {
	It("returns a token of the requested length", func() {
		for _, n := range []int{32, 33, 40, 64, 65} {
			tok, err := token.Secure(n)
			Expect(err).NotTo(HaveOccurred())
			Expect(tok).To(HaveLen(n))
		}
	})

	It("never goes below the minimum length", func() {
		tok, err := token.Secure(8)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok).To(HaveLen(token.MinLength))
	})

	It("only uses URL-safe characters", func() {
		for i := 0; i < 200; i++ {
			tok, err := token.Secure(token.MinLength)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.ContainsAny(tok, "+/=")).To(BeFalse())
			Expect(token.IsURLSafe(tok)).To(BeTrue())
		}
	})

	It("does not repeat itself", func() {
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			tok, err := token.Secure(token.MinLength)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).NotTo(HaveKey(tok))
			seen[tok] = struct{}{}
		}
	})
})

var _ = Describe("IsURLSafe", func() {
	It("rejects base64 padding and path separators", func() {
		Expect(token.IsURLSafe("abc-DEF_123")).To(BeTrue())
		Expect(token.IsURLSafe("abc+def")).To(BeFalse())
		Expect(token.IsURLSafe("abc/def")).To(BeFalse())
		Expect(token.IsURLSafe("abc=")).To(BeFalse())
		Expect(token.IsURLSafe("ünï")).To(BeFalse())
	})
})
