package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cpanato/mattermost-plugin-alertmanager/core/config"
)

var _ = Describe("Load", func() {
	// Load reads the process environment; keep the keys we touch isolated per test.
	setEnv := func(key, value string) {
		prev, had := os.LookupEnv(key)
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv(key, prev)
			} else {
				_ = os.Unsetenv(key)
			}
		})
	}

	BeforeEach(func() {
		setEnv("ALERTMANAGER_ENV", "test")
		setEnv("ADMIN_API_KEY", "secret")
	})

	It("applies defaults", func() {
		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Port).To(Equal("8080"))
		Expect(cfg.Settings.EmptyDefault).To(Equal("placeholder"))
		Expect(cfg.Settings.TokenLength).To(Equal(32))
		Expect(cfg.Settings.SettingID).To(Equal("PluginSettings.Plugins.alertmanager.alertconfigs"))
		Expect(cfg.Notify.Enabled()).To(BeTrue())
	})

	It("raises short token lengths to the minimum", func() {
		setEnv("TOKEN_LENGTH", "12")

		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Settings.TokenLength).To(Equal(32))
	})

	DescribeTable("reads the session idle ttl",
		func(raw string, want time.Duration) {
			setEnv("SESSION_IDLE_TTL", raw)

			cfg, err := config.Load(config.ServiceTypeServer)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Settings.SessionIdleTTL).To(Equal(want))
		},
		Entry("duration", "5m", 5*time.Minute),
		Entry("garbage falls back", "soon", 30*time.Minute),
		Entry("non-positive falls back", "0s", 30*time.Minute),
	)

	It("accepts the none policy", func() {
		setEnv("EMPTY_COLLECTION_DEFAULT", "none")

		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Settings.EmptyDefault).To(Equal("none"))
	})

	It("rejects an unknown empty collection policy", func() {
		setEnv("EMPTY_COLLECTION_DEFAULT", "two")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("EMPTY_COLLECTION_DEFAULT")))
	})

	It("requires an admin key outside development", func() {
		setEnv("ADMIN_API_KEY", "")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("ADMIN_API_KEY")))
	})

	It("does not require an admin key for the worker", func() {
		setEnv("ADMIN_API_KEY", "")
		setEnv("SETTINGS_CONSUMER", "reload-1")

		cfg, err := config.Load(config.ServiceTypeWorker)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Notify.Group).To(Equal("alertmanager_reload"))
		Expect(cfg.Notify.Consumer).To(Equal("reload-1"))
	})
})
