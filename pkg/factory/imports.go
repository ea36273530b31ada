package factory

import (
	"github.com/polyllm/go-polyllm/pkg/llm"
	"github.com/polyllm/go-polyllm/pkg/providers/anthropic"
	"github.com/polyllm/go-polyllm/pkg/providers/google"
	"github.com/polyllm/go-polyllm/pkg/providers/mock"
	"github.com/polyllm/go-polyllm/pkg/providers/openai"
	"github.com/polyllm/go-polyllm/pkg/providers/xai"
)

func init() {
	RegisterProvider("openai", func(config llm.ClientConfig) (llm.Client, error) {
		return openai.NewClient(config)
	})

	RegisterProvider("xai", func(config llm.ClientConfig) (llm.Client, error) {
		return xai.NewClient(config)
	})

	RegisterProvider("anthropic", func(config llm.ClientConfig) (llm.Client, error) {
		return anthropic.NewClient(config)
	})

	RegisterProvider("google", func(config llm.ClientConfig) (llm.Client, error) {
		return google.NewClient(config)
	})

	RegisterProvider("mock", func(config llm.ClientConfig) (llm.Client, error) {
		return mock.NewClient(config.Model, "mock"), nil
	})
}
