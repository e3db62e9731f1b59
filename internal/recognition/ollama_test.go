package recognition

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		ghServer *ghttp.Server
		ollama   *Ollama
		result   *Result
		err      error
	)

	BeforeEach(func() {
		ghServer = ghttp.NewServer()
		ollama, err = NewOllama(ghServer.URL()+"/", "qwen2-vl:7b")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		ghServer.Close()
	})

	JustBeforeEach(func() {
		result, err = ollama.Recognize(context.Background(), []byte("png"), "image/png")
	})

	When("the model reads the label", func() {
		BeforeEach(func() {
			ghServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{
						Role:    "assistant",
						Content: "```json\n{\"name\": \"Amoxicillin\", \"code\": \"723\", \"manufacturer\": null}\n```",
					},
					Done: true,
				}),
			))
		})

		It("should return the parsed result", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Name).To(Equal("Amoxicillin"))
			Expect(result.Code).To(Equal("723"))
		})
	})

	When("the model cannot find a code", func() {
		BeforeEach(func() {
			ghServer.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: `{"name": "Amoxicillin", "code": null}`},
				Done:    true,
			}))
		})

		It("returns a parse error", func() {
			var recErr *Error
			Expect(errors.As(err, &recErr)).To(BeTrue())
			Expect(recErr.Kind).To(Equal(KindParse))
			Expect(recErr.Field).To(Equal("code"))
		})
	})

	When("ollama returns an error status", func() {
		BeforeEach(func() {
			ghServer.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, `{"error":"model not found"}`))
		})

		It("returns a server error", func() {
			var recErr *Error
			Expect(errors.As(err, &recErr)).To(BeTrue())
			Expect(recErr.Kind).To(Equal(KindServer))
			Expect(recErr.StatusCode).To(Equal(http.StatusNotFound))
		})
	})
})
