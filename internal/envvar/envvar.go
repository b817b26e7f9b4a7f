package envvar

const (
	// StoryreelEnv is the environment variable used to determine the environment
	StoryreelEnv = "STORYREEL_ENV"

	// StoryreelModelsPath overrides the directory where downloaded models are kept
	StoryreelModelsPath = "STORYREEL_MODELS_PATH"

	// StoryreelServerHTTPPort is the environment variable used to determine the HTTP port
	StoryreelServerHTTPPort = "STORYREEL_SERVER_HTTP_PORT"

	// StoryreelServerGRPCPort is the environment variable used to determine the gRPC port
	StoryreelServerGRPCPort = "STORYREEL_SERVER_GRPC_PORT"

	// OpenAIAPIKey is the API key used by the openai speech backend
	OpenAIAPIKey = "OPENAI_API_KEY"
)
