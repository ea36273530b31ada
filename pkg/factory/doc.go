// Package factory provides provider registration and client creation.
//
// Importing this package registers every built-in provider as a side
// effect; CreateClient then routes a ClientConfig to the right
// constructor, inferring the provider from the model name when it is
// not set explicitly.
//
// Example usage:
//
//	f := factory.New()
//	client, err := f.CreateClient(llm.ClientConfig{
//	    Model:  "claude-sonnet-4-20250514",
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
package factory
