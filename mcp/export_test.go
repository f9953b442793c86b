package mcp

var (
	InputSchemaToParameters = inputSchemaToParameters
	SpecToInputSchema       = specToInputSchema
	ContentToText           = contentToText
)
