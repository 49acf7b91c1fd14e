package protocol_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/collab-sync/internal/protocol"
)

var _ = Describe("Decode", func() {
	It("should decode join-document", func() {
		msg, err := protocol.Decode([]byte(`{"type":"join-document","documentId":"doc1","userId":"u1"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(Equal(protocol.JoinDocument{DocumentID: "doc1", UserID: "u1"}))
		Expect(msg.Type()).To(Equal(protocol.TypeJoinDocument))
	})

	It("should decode text-update and keep the version verbatim", func() {
		msg, err := protocol.Decode([]byte(`{"type":"text-update","documentId":"doc1","paragraphId":"p1","userId":"u1","content":"hello","version":{"rev":3}}`))
		Expect(err).NotTo(HaveOccurred())

		update, ok := msg.(protocol.TextUpdate)
		Expect(ok).To(BeTrue())
		Expect(update.DocumentID).To(Equal("doc1"))
		Expect(update.ParagraphID).To(Equal("p1"))
		Expect(update.UserID).To(Equal("u1"))
		Expect(update.Content).To(Equal("hello"))
		Expect(string(update.Version)).To(Equal(`{"rev":3}`))
	})

	It("should keep the raw bytes of cursor-update", func() {
		frame := []byte(`{"type":"cursor-update","documentId":"doc1","position":{"line":2,"ch":7}}`)
		msg, err := protocol.Decode(frame)
		Expect(err).NotTo(HaveOccurred())

		cursor, ok := msg.(protocol.CursorUpdate)
		Expect(ok).To(BeTrue())
		Expect(cursor.Raw).To(Equal(frame))
	})

	It("should not interpret cursor-update fields", func() {
		frame := []byte(`{"type":"cursor-update","documentId":42,"position":"top"}`)
		msg, err := protocol.Decode(frame)
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(Equal(protocol.CursorUpdate{Raw: frame}))
	})

	It("should decode request-analytics", func() {
		msg, err := protocol.Decode([]byte(`{"type":"request-analytics","documentId":"doc1"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(Equal(protocol.RequestAnalytics{DocumentID: "doc1"}))
	})

	It("should map unknown types to Unknown without error", func() {
		msg, err := protocol.Decode([]byte(`{"type":"presence-ping"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(Equal(protocol.Unknown{Name: "presence-ping"}))
	})

	It("should map a frame without type to Unknown", func() {
		msg, err := protocol.Decode([]byte(`{"documentId":"doc1"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(BeAssignableToTypeOf(protocol.Unknown{}))
	})

	DescribeTable("malformed frames",
		func(frame string) {
			msg, err := protocol.Decode([]byte(frame))
			Expect(err).To(MatchError(protocol.ErrMalformedFrame))
			Expect(msg).To(BeNil())
		},
		Entry("not json", `hello`),
		Entry("truncated object", `{"type":"join-document"`),
		Entry("array", `[1,2,3]`),
		Entry("null", `null`),
		Entry("boolean", `true`),
		Entry("string", `"join-document"`),
		Entry("number", ` 42`),
		Entry("empty", ``),
		Entry("wrong field type", `{"type":"text-update","content":42}`),
		Entry("wrong type field type", `{"type":7}`),
	)
})

var _ = Describe("Outbound frames", func() {
	It("should stamp text-update relays in UTC with millisecond precision", func() {
		at := time.Date(2026, 3, 4, 5, 6, 7, 891_000_000, time.FixedZone("X", 3600))
		relay := protocol.NewTextUpdateRelay(protocol.TextUpdate{
			DocumentID:  "doc1",
			ParagraphID: "p1",
			UserID:      "u1",
			Content:     "hello",
			Version:     json.RawMessage(`1`),
		}, at)

		data, err := protocol.Encode(relay)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{
			"type": "text-update",
			"documentId": "doc1",
			"paragraphId": "p1",
			"userId": "u1",
			"content": "hello",
			"version": 1,
			"timestamp": "2026-03-04T04:06:07.891Z"
		}`))
	})

	It("should omit a missing version", func() {
		data, err := protocol.Encode(protocol.NewTextUpdateRelay(protocol.TextUpdate{DocumentID: "doc1"}, time.Now()))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).NotTo(ContainSubstring("version"))
	})

	It("should encode joined-document", func() {
		data, err := protocol.Encode(protocol.NewJoinedDocument("doc1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{"type":"joined-document","documentId":"doc1","message":"Successfully joined document"}`))
	})

	It("should encode error frames", func() {
		data, err := protocol.Encode(protocol.NewError("Failed to process message"))
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{"type":"error","message":"Failed to process message"}`))
	})

	It("should encode analytics-data", func() {
		data, err := protocol.Encode(protocol.NewAnalyticsData("doc1", []int{}))
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{"type":"analytics-data","documentId":"doc1","data":[]}`))
	})
})
