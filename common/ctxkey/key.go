package ctxkey

const (
	// APIKey is the upstream credential extracted from the Authorization header.
	// Set in: middleware.TokenAuth. Read by relay controllers for bot queries and uploads.
	APIKey = "api_key"

	// RequestModel is the model (bot) name as requested by the client.
	// Set by relay controllers after binding the request body; used for logging and metrics labels.
	RequestModel = "request_model"
)
