package settings_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cpanato/mattermost-plugin-alertmanager/internal/settings"
)

var _ = Describe("Schema", func() {
	It("describes entries keyed by decimal id", func() {
		s := settings.Schema()

		Expect(s.Type).To(Equal("object"))
		Expect(s.PatternProperties).To(HaveKey(`^(0|[1-9][0-9]*)$`))

		entry := s.PatternProperties[`^(0|[1-9][0-9]*)$`]
		Expect(entry.Required).To(ConsistOf("team", "channel", "token", "url"))
	})

	It("marshals to json", func() {
		raw, err := json.Marshal(settings.Schema())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(`"additionalProperties":false`))
	})
})
