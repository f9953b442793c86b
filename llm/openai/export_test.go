package openai

// Export for testing
type APIClient = apiClient

var (
	ConvertMessages = convertMessages
	ConvertTools    = convertTools
)

// NewWithAPIClient creates a client backed by a custom API client for testing.
func NewWithAPIClient(api apiClient, options ...Option) *Client {
	client := newClient(options...)
	client.api = api
	return client
}
