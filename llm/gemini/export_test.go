package gemini

// Export for testing
type (
	APIClient = apiClient
	Request   = request
)

var (
	ConvertMessages = convertMessages
	ConvertTools    = convertTools
)

// NewWithAPIClient creates a client backed by a custom API client and deterministic call IDs.
func NewWithAPIClient(api apiClient, newID func() string, options ...Option) *Client {
	client := newClient(options...)
	client.api = api
	if newID != nil {
		client.newCallID = newID
	}
	return client
}
