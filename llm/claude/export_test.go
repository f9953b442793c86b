package claude

// Export convert functions for testing
var (
	ConvertMessages = convertMessages
	ConvertTools    = convertTools
	ConvertResponse = convertResponse
)

// Export for testing
type APIClient = apiClient

// NewWithAPIClient creates a client backed by a custom API client for testing.
func NewWithAPIClient(api apiClient, options ...Option) *Client {
	client := newClient(options...)
	client.api = api
	return client
}
