// Package mock provides moq generated mocks of pandora interfaces for tests.
package mock

//go:generate go tool moq -out mock_go.go -pkg mock .. LLMClient Tool ToolCache
