package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/trace"

	"github.com/cpanato/mattermost-plugin-alertmanager/common/logger"
)

var _ = Describe("TraceHandler", func() {
	var (
		buf bytes.Buffer
		log *slog.Logger
	)

	record := func() map[string]any {
		var out map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &out)).To(Succeed())
		return out
	}

	BeforeEach(func() {
		buf.Reset()
		log = slog.New(logger.NewTraceHandler(slog.NewJSONHandler(&buf, nil)))
	})

	It("adds log fields from the context", func() {
		settingID := "PluginSettings.Plugins.alertmanager.alertconfigs"
		sessionID := int64(42)
		entryID := 3

		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			SettingID: &settingID,
			SessionID: &sessionID,
			Component: "alertmanager.service.settings",
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{EntryID: &entryID})

		log.InfoContext(ctx, "entry changed")

		out := record()
		Expect(out).To(HaveKeyWithValue("setting_id", settingID))
		Expect(out).To(HaveKeyWithValue("session_id", BeNumerically("==", 42)))
		Expect(out).To(HaveKeyWithValue("entry_id", BeNumerically("==", 3)))
		Expect(out).To(HaveKeyWithValue("component", "alertmanager.service.settings"))
		Expect(out).NotTo(HaveKey("revision_id"))
	})

	It("adds the trace and span ids", func() {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
			SpanID:  trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		log.InfoContext(ctx, "traced")

		out := record()
		Expect(out).To(HaveKeyWithValue("trace_id", sc.TraceID().String()))
		Expect(out).To(HaveKeyWithValue("span_id", sc.SpanID().String()))
	})

	It("leaves plain records alone", func() {
		log.Info("plain")

		out := record()
		Expect(out).NotTo(HaveKey("trace_id"))
		Expect(out).NotTo(HaveKey("component"))
	})
})

var _ = Describe("StartSpanFromTraceID", func() {
	It("parents the span on the remote ids", func() {
		sc := logger.StartSpanFromTraceID(context.Background(),
			"4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7", "reload.handle")
		defer sc.End()

		Expect(sc.TraceID()).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))
	})

	// The global provider is the no-op one here, so an unparented span has no ids.
	DescribeTable("starts an unparented span without usable ids",
		func(traceID, spanID string) {
			sc := logger.StartSpanFromTraceID(context.Background(), traceID, spanID, "reload.handle")
			defer sc.End()

			Expect(sc.TraceID()).To(BeEmpty())
		},
		Entry("no ids", "", ""),
		Entry("bad trace id", "not-hex", "00f067aa0ba902b7"),
		Entry("missing span id", "4bf92f3577b34da6a3ce929d0e0e4736", ""),
	)
})
