//go:build !gocv

package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CameraSource without gocv", func() {
	It("reports missing camera support", func() {
		_, err := NewCameraSource(0)
		Expect(err).To(MatchError(ErrCameraUnsupported))
	})
})
