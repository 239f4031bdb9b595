package settings_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cpanato/mattermost-plugin-alertmanager/internal/settings"
)

const settingID = "PluginSettings.Plugins.alertmanager.alertconfigs"

var _ = Describe("Manager", func() {
	var (
		host *recordingHost
		m    *settings.Manager
	)

	newManager := func(d settings.EmptyDefault) *settings.Manager {
		return settings.NewManager(settingID, host,
			settings.WithEmptyDefault(d),
			settings.WithTokenGenerator(sequenceTokens()),
		)
	}

	BeforeEach(func() {
		host = &recordingHost{}
		m = newManager(settings.EmptyDefaultNone)
	})

	Describe("Initialize", func() {
		It("decodes the persisted value without notifying the host", func() {
			Expect(m.Initialize([]byte(`{"0":{"team":"eng","channel":"town-square","token":"abc","url":"http://am.example.com"}}`))).To(Succeed())

			Expect(m.Collection().Len()).To(Equal(1))
			Expect(m.Editors()).To(HaveLen(1))
			Expect(host.changes).To(BeEmpty())
			Expect(host.saveNeeded).To(BeZero())
		})

		It("starts empty under the none policy", func() {
			Expect(m.Initialize(nil)).To(Succeed())
			Expect(m.Collection().Len()).To(BeZero())
			Expect(m.Editors()).To(BeEmpty())
		})

		It("starts with one blank entry under the placeholder policy", func() {
			m = newManager(settings.EmptyDefaultPlaceholder)
			Expect(m.Initialize([]byte("null"))).To(Succeed())

			Expect(m.Collection().IDs()).To(Equal([]settings.EntryID{settings.BaseID}))
			e, _ := m.Collection().Get(settings.BaseID)
			Expect(e).To(Equal(settings.Entry{}))
			Expect(m.Editors()).To(HaveLen(1))
		})

		It("keeps an explicitly saved empty collection empty under either policy", func() {
			m = newManager(settings.EmptyDefaultPlaceholder)
			Expect(m.Initialize([]byte("{}"))).To(Succeed())
			Expect(m.Collection().Len()).To(BeZero())
		})

		It("defaults to the placeholder policy", func() {
			Expect(settings.NewManager(settingID, host).EmptyDefault()).To(Equal(settings.EmptyDefaultPlaceholder))
		})

		It("reports malformed values", func() {
			Expect(m.Initialize([]byte(`{"x":{}}`))).To(MatchError(settings.ErrMalformedValue))
		})

		It("discards a pending delete", func() {
			Expect(m.Initialize([]byte(`[{}]`))).To(Succeed())
			m.RequestDelete(0)
			Expect(m.Initialize([]byte(`[{}]`))).To(Succeed())
			Expect(m.DeletePrompt().Show).To(BeFalse())
		})
	})

	Describe("AddEntry", func() {
		It("uses the base id on an empty collection", func() {
			Expect(m.Initialize(nil)).To(Succeed())

			id, err := m.AddEntry()
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(settings.EntryID(0)))
			Expect(m.Collection().Len()).To(Equal(1))
		})

		It("picks an id above every existing id", func() {
			Expect(m.Initialize([]byte(`{"2":{},"9":{},"4":{}}`))).To(Succeed())

			id, err := m.AddEntry()
			Expect(err).NotTo(HaveOccurred())
			for _, existing := range []settings.EntryID{2, 4, 9} {
				Expect(id).To(BeNumerically(">", existing))
			}
			Expect(m.Collection().IDs()).To(Equal([]settings.EntryID{2, 4, 9, 10}))
		})

		It("stops at the highest id instead of wrapping", func() {
			Expect(m.Initialize([]byte(`{"2147483647":{"team":"eng","channel":"alerts","token":"t","url":"http://a"}}`))).To(Succeed())
			before := host.saveNeeded

			_, err := m.AddEntry()
			Expect(err).To(MatchError(settings.ErrIDsExhausted))
			Expect(m.Collection().IDs()).To(Equal([]settings.EntryID{settings.MaxEntryID}))
			Expect(host.saveNeeded).To(Equal(before))

			value, err := m.Serialize()
			Expect(err).NotTo(HaveOccurred())
			decoded, err := settings.Decode(value)
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded.IDs()).To(Equal([]settings.EntryID{settings.MaxEntryID}))
		})

		It("serializes and flags the save", func() {
			Expect(m.Initialize(nil)).To(Succeed())
			_, err := m.AddEntry()
			Expect(err).NotTo(HaveOccurred())

			Expect(host.last()).To(Equal(`{"0":{"team":"","channel":"","token":"","url":""}}`))
			Expect(host.settingIDs).To(ConsistOf(settingID))
			Expect(host.saveNeeded).To(Equal(1))
		})

		It("gives the new entry an editor", func() {
			Expect(m.Initialize(nil)).To(Succeed())
			id, _ := m.AddEntry()

			ed, ok := m.Editor(id)
			Expect(ok).To(BeTrue())
			Expect(ed.HasError()).To(BeFalse())
		})

		DescribeTable("adds exactly one entry after initializing an empty value",
			func(d settings.EmptyDefault, expected int) {
				m = newManager(d)
				Expect(m.Initialize(nil)).To(Succeed())
				Expect(m.Collection().Len()).To(Equal(expected))

				_, err := m.AddEntry()
				Expect(err).NotTo(HaveOccurred())
				Expect(m.Collection().Len()).To(Equal(expected + 1))
			},
			Entry("none", settings.EmptyDefaultNone, 0),
			Entry("placeholder", settings.EmptyDefaultPlaceholder, 1),
		)
	})

	Describe("UpdateEntry", func() {
		BeforeEach(func() {
			Expect(m.Initialize([]byte(`{"0":{"team":"eng","channel":"town-square","token":"abc","url":"http://am.example.com"}}`))).To(Succeed())
		})

		It("merges the given fields only", func() {
			url := "http://other"
			Expect(m.UpdateEntry(0, settings.Patch{URL: &url})).To(Succeed())

			e, _ := m.Collection().Get(0)
			Expect(e).To(Equal(settings.Entry{Team: "eng", Channel: "town-square", Token: "abc", URL: "http://other"}))
			Expect(host.saveNeeded).To(Equal(1))
		})

		It("refreshes the editor's working copy and flags", func() {
			blank := ""
			Expect(m.UpdateEntry(0, settings.Patch{Team: &blank})).To(Succeed())

			ed, _ := m.Editor(0)
			Expect(ed.Entry().Team).To(BeEmpty())
			Expect(ed.FieldError(settings.FieldTeam)).To(BeTrue())
		})

		It("rejects unknown ids without notifying the host", func() {
			team := "x"
			Expect(m.UpdateEntry(7, settings.Patch{Team: &team})).To(MatchError(settings.ErrUnknownEntry))
			Expect(host.changes).To(BeEmpty())
		})

		It("leaves previously returned collections untouched", func() {
			before := m.Collection()
			team := "ops"
			Expect(m.UpdateEntry(0, settings.Patch{Team: &team})).To(Succeed())

			e, _ := before.Get(0)
			Expect(e.Team).To(Equal("eng"))
		})
	})

	Describe("editing through an editor", func() {
		It("persists a blanked team instead of reverting it", func() {
			Expect(m.Initialize([]byte(`{"0":{"team":"eng","channel":"town-square","token":"abc","url":"http://am.example.com"}}`))).To(Succeed())

			ed, ok := m.Editor(0)
			Expect(ok).To(BeTrue())
			Expect(ed.OnFieldChange(settings.FieldTeam, "")).To(Succeed())

			Expect(ed.HasError()).To(BeTrue())
			Expect(host.last()).To(Equal(`{"0":{"team":"","channel":"town-square","token":"abc","url":"http://am.example.com"}}`))
			Expect(host.saveNeeded).To(Equal(1))
		})

		It("persists regenerated tokens", func() {
			Expect(m.Initialize([]byte(`[{"token":"old"}]`))).To(Succeed())

			ed, _ := m.Editor(0)
			Expect(ed.OnRegenerateToken()).To(Succeed())

			e, _ := m.Collection().Get(0)
			Expect(e.Token).To(HavePrefix("tok-000001"))
			Expect(e.Token).To(HaveLen(32))
			Expect(host.last()).To(ContainSubstring(e.Token))
		})

		It("honours the configured token length", func() {
			m = settings.NewManager(settingID, host, settings.WithTokenLength(48), settings.WithTokenGenerator(sequenceTokens()))
			Expect(m.Initialize([]byte(`[{}]`))).To(Succeed())

			ed, _ := m.Editor(0)
			Expect(ed.OnRegenerateToken()).To(Succeed())
			Expect(ed.Entry().Token).To(HaveLen(48))
		})

		It("opens the delete prompt from the editor", func() {
			Expect(m.Initialize([]byte(`[{},{}]`))).To(Succeed())

			ed, _ := m.Editor(1)
			ed.OnDeleteRequested()

			prompt := m.DeletePrompt()
			Expect(prompt.Show).To(BeTrue())
			Expect(prompt.EntryID).To(Equal(settings.EntryID(1)))
		})
	})

	Describe("deleting", func() {
		BeforeEach(func() {
			Expect(m.Initialize([]byte(`[{"team":"a"},{"team":"b"},{"team":"c"}]`))).To(Succeed())
		})

		It("asks for confirmation first", func() {
			m.RequestDelete(1)

			prompt := m.DeletePrompt()
			Expect(prompt).To(Equal(settings.ConfirmDialog{
				Show:              true,
				Title:             "Delete Alert Manager",
				Message:           "Are you sure you want to remove this alert manager?",
				ConfirmButtonText: "Remove",
				EntryID:           1,
			}))
			Expect(m.Collection().Len()).To(Equal(3))
			Expect(host.changes).To(BeEmpty())
		})

		It("removes the entry on confirm", func() {
			m.RequestDelete(1)
			removed, err := m.ConfirmDelete()

			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())
			Expect(m.Collection().IDs()).To(Equal([]settings.EntryID{0, 2}))
			Expect(m.DeletePrompt().Show).To(BeFalse())
			_, ok := m.Editor(1)
			Expect(ok).To(BeFalse())
			Expect(host.last()).NotTo(ContainSubstring(`"1"`))
			Expect(host.saveNeeded).To(Equal(1))
		})

		It("keeps everything on cancel", func() {
			m.RequestDelete(1)
			m.CancelDelete()

			Expect(m.DeletePrompt().Show).To(BeFalse())
			Expect(m.Collection().Len()).To(Equal(3))
			Expect(host.changes).To(BeEmpty())

			removed, err := m.ConfirmDelete()
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
		})

		It("is idempotent", func() {
			removed, err := m.DeleteEntry(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())
			after := m.Collection()
			notified := len(host.changes)

			removed, err = m.DeleteEntry(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
			Expect(m.Collection().Equal(after)).To(BeTrue())
			Expect(host.changes).To(HaveLen(notified))
		})

		It("treats a missing id as a no-op", func() {
			m.RequestDelete(42)
			removed, err := m.ConfirmDelete()
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
			Expect(m.Collection().Len()).To(Equal(3))
		})

		It("hands out the freed maximum id again", func() {
			_, err := m.DeleteEntry(2)
			Expect(err).NotTo(HaveOccurred())

			id, err := m.AddEntry()
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(settings.EntryID(2)))
		})

		It("does not reuse ids below the maximum", func() {
			_, err := m.DeleteEntry(0)
			Expect(err).NotTo(HaveOccurred())

			id, err := m.AddEntry()
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(settings.EntryID(3)))
		})

		It("shows the empty state once every entry is gone", func() {
			for _, id := range m.Collection().IDs() {
				_, err := m.DeleteEntry(id)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(m.Collection().Len()).To(BeZero())
			Expect(host.last()).To(Equal("{}"))
			Expect(settings.EmptyStateText).To(Equal("No alert managers have been created"))
		})
	})

	Describe("Serialize", func() {
		It("round-trips through Initialize", func() {
			raw := `{"0":{"team":"a+b","channel":"ç/h","token":"x+y/z","url":""},"5":{"team":"","channel":"","token":"","url":"http://am"}}`
			Expect(m.Initialize([]byte(raw))).To(Succeed())

			first, err := m.Serialize()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(first)).To(Equal(raw))

			again := newManager(settings.EmptyDefaultPlaceholder)
			Expect(again.Initialize(first)).To(Succeed())
			second, err := again.Serialize()
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("migrates legacy shapes to the canonical one", func() {
			Expect(m.Initialize([]byte(`[{"teamName":"eng","channelName":"c","token":"t","alertmanagerurl":"u"}]`))).To(Succeed())

			raw, err := m.Serialize()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal(`{"0":{"team":"eng","channel":"c","token":"t","url":"u"}}`))
			Expect(strings.Contains(string(raw), "teamName")).To(BeFalse())
		})
	})

	It("parses empty default policies", func() {
		d, err := settings.ParseEmptyDefault("none")
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(settings.EmptyDefaultNone))

		_, err = settings.ParseEmptyDefault("maybe")
		Expect(err).To(HaveOccurred())
	})
})
