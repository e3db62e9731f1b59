package recognition

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("NewClient", func() {
	It("requires an endpoint", func() {
		_, err := NewClient("")
		Expect(err).To(HaveOccurred())
	})

	It("rejects plain http endpoints by default", func() {
		_, err := NewClient("http://example.com/processDocument")
		Expect(err).To(MatchError(ContainSubstring("must use https")))
	})

	It("accepts plain http endpoints when allowed", func() {
		client, err := NewClient("http://localhost:8080/processDocument", WithAllowInsecure())
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Endpoint()).To(Equal("http://localhost:8080/processDocument"))
	})

	It("rejects other schemes", func() {
		_, err := NewClient("ftp://example.com/processDocument", WithAllowInsecure())
		Expect(err).To(MatchError(ContainSubstring("unsupported endpoint scheme")))
	})

	It("rejects endpoints without a host", func() {
		_, err := NewClient("https:///processDocument")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Client", func() {
	var (
		ghServer *ghttp.Server
		client   *Client
		image    []byte
		mimeType string
		result   *Result
		err      error
	)

	BeforeEach(func() {
		ghServer = ghttp.NewTLSServer()
		image = []byte("\x89PNG fake label image")
		mimeType = "image/png"

		var newErr error
		client, newErr = NewClient(ghServer.URL()+"/processDocument",
			WithHTTPClient(ghServer.HTTPTestServer.Client()),
		)
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		ghServer.Close()
	})

	JustBeforeEach(func() {
		result, err = client.Recognize(context.Background(), image, mimeType)
	})

	When("the service recognizes the document", func() {
		BeforeEach(func() {
			ghServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/processDocument"),
				ghttp.VerifyContentType("application/json"),
				ghttp.VerifyJSONRepresenting(map[string]string{
					"encodedImage": base64.StdEncoding.EncodeToString(image),
					"mimeType":     "image/png",
				}),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{
					"name": "Amoxicillin",
					"code": "723",
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the recognized fields", func() {
			Expect(result.Name).To(Equal("Amoxicillin"))
			Expect(result.Code).To(Equal("723"))
		})

		It("should send exactly one request", func() {
			Expect(ghServer.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("no media type is given", func() {
		BeforeEach(func() {
			mimeType = ""
			ghServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyJSONRepresenting(map[string]string{
					"encodedImage": base64.StdEncoding.EncodeToString(image),
					"mimeType":     "image/png",
				}),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"name": "A", "code": "1"}),
			))
		})

		It("should default to image/png", func() {
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the service answers with a non-success status", func() {
		BeforeEach(func() {
			ghServer.AppendHandlers(ghttp.RespondWith(http.StatusBadGateway, "upstream unavailable"))
		})

		It("returns a server error with the status code", func() {
			var recErr *Error
			Expect(errors.As(err, &recErr)).To(BeTrue())
			Expect(recErr.Kind).To(Equal(KindServer))
			Expect(recErr.StatusCode).To(Equal(http.StatusBadGateway))
		})

		It("should not retry", func() {
			Expect(ghServer.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("the response lacks the code field", func() {
		BeforeEach(func() {
			ghServer.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{
				"name": "Amoxicillin",
			}))
		})

		It("returns a parse error", func() {
			var recErr *Error
			Expect(errors.As(err, &recErr)).To(BeTrue())
			Expect(recErr.Kind).To(Equal(KindParse))
			Expect(recErr.Field).To(Equal("code"))
		})
	})

	When("the response body is malformed", func() {
		BeforeEach(func() {
			ghServer.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"name": "Amox`))
		})

		It("returns a parse error", func() {
			var recErr *Error
			Expect(errors.As(err, &recErr)).To(BeTrue())
			Expect(recErr.Kind).To(Equal(KindParse))
		})
	})

	When("the service does not answer in time", func() {
		BeforeEach(func() {
			httpClient := ghServer.HTTPTestServer.Client()
			httpClient.Timeout = 50 * time.Millisecond
			client, _ = NewClient(ghServer.URL()+"/processDocument", WithHTTPClient(httpClient))

			ghServer.AppendHandlers(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			})
		})

		It("returns a transport error", func() {
			var recErr *Error
			Expect(errors.As(err, &recErr)).To(BeTrue())
			Expect(recErr.Kind).To(Equal(KindTransport))
		})
	})

	When("the service is unreachable", func() {
		BeforeEach(func() {
			url := ghServer.URL() + "/processDocument"
			httpClient := ghServer.HTTPTestServer.Client()
			ghServer.Close()
			client, _ = NewClient(url, WithHTTPClient(httpClient))
		})

		It("returns a transport error", func() {
			var recErr *Error
			Expect(errors.As(err, &recErr)).To(BeTrue())
			Expect(recErr.Kind).To(Equal(KindTransport))
		})
	})

	When("the image is empty", func() {
		BeforeEach(func() {
			image = nil
		})

		It("returns ErrEmptyImage without calling the service", func() {
			Expect(err).To(MatchError(ErrEmptyImage))
			Expect(ghServer.ReceivedRequests()).To(BeEmpty())
		})
	})
})
