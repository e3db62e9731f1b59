package capture

import (
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/ndc-scanner/internal/recognition"
)

var _ = Describe("CanTransition", func() {
	DescribeTable("edges",
		func(from, to Status, allowed bool) {
			Expect(CanTransition(from, to)).To(Equal(allowed))
		},
		Entry("idle to capturing", StatusIdle, StatusCapturing, true),
		Entry("capturing to uploading", StatusCapturing, StatusUploading, true),
		Entry("capturing to failed", StatusCapturing, StatusFailed, true),
		Entry("uploading to succeeded", StatusUploading, StatusSucceeded, true),
		Entry("uploading to failed", StatusUploading, StatusFailed, true),
		Entry("succeeded to idle", StatusSucceeded, StatusIdle, true),
		Entry("failed to idle", StatusFailed, StatusIdle, true),

		Entry("idle to uploading", StatusIdle, StatusUploading, false),
		Entry("idle to succeeded", StatusIdle, StatusSucceeded, false),
		Entry("capturing to succeeded", StatusCapturing, StatusSucceeded, false),
		Entry("capturing to idle", StatusCapturing, StatusIdle, false),
		Entry("uploading to idle", StatusUploading, StatusIdle, false),
		Entry("succeeded to capturing", StatusSucceeded, StatusCapturing, false),
		Entry("failed to capturing", StatusFailed, StatusCapturing, false),
		Entry("failed to succeeded", StatusFailed, StatusSucceeded, false),
		Entry("idle to idle", StatusIdle, StatusIdle, false),
		Entry("unknown status", Status("paused"), StatusIdle, false),
	)
})

var _ = Describe("session", func() {
	It("rejects transitions that skip a state", func() {
		s := &session{status: StatusIdle}
		Expect(s.transition(StatusUploading, fixedTime)).To(MatchError(ContainSubstring("invalid transition")))
		Expect(s.status).To(Equal(StatusIdle))
	})

	It("records the time of each transition", func() {
		s := &session{status: StatusIdle}
		Expect(s.transition(StatusCapturing, fixedTime)).To(Succeed())
		Expect(s.snapshot().UpdatedAt).To(Equal(fixedTime))
	})
})

var _ = Describe("describe", func() {
	It("maps acquisition failures", func() {
		err := fmt.Errorf("capturing: %w", &AcquisitionError{Err: errors.New("no camera")})
		Expect(describe(err)).To(Equal(MessageAcquisition))
	})

	It("maps transport failures", func() {
		Expect(describe(&recognition.Error{Kind: recognition.KindTransport, Err: errors.New("timeout")})).To(Equal(MessageTransport))
	})

	It("includes the status code for server failures", func() {
		msg := describe(&recognition.Error{Kind: recognition.KindServer, StatusCode: 503})
		Expect(msg).To(ContainSubstring("HTTP 503"))
	})

	It("names the missing field for incomplete results", func() {
		msg := describe(&recognition.Error{Kind: recognition.KindParse, Field: "name"})
		Expect(msg).To(ContainSubstring("the name field is missing"))
	})

	It("maps malformed bodies", func() {
		Expect(describe(&recognition.Error{Kind: recognition.KindParse, Err: errors.New("bad json")})).To(Equal(MessageParse))
	})

	It("falls back for anything else", func() {
		Expect(describe(errors.New("boom"))).To(Equal(MessageUnknown))
	})
})

var fixedTime = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
