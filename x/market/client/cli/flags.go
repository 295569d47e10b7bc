package cli

// Flag names shared by the market tx commands.
const (
	FlagModel    = "model"
	FlagMetadata = "metadata"
	FlagEndpoint = "endpoint"
	FlagAmount   = "amount"
)
