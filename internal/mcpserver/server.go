// Package mcpserver exposes the Tecton retrieval and reference handlers as MCP
// tools over stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tecton-ai/tecton-mcp/internal/app"
)

// Tool names.
const (
	ToolExamples       = "query_example_code_snippet_index_tool"
	ToolDocs           = "query_documentation_index_tool"
	ToolFullReference  = "get_full_tecton_sdk_reference_tool"
	ToolQueryReference = "query_tecton_sdk_reference_tool"
)

// Instructions is sent to clients on initialization.
const Instructions = `
Tecton MCP Server provides a set of tools to help you with Tecton.

Use the tools to:
- get examples of how to build features with Tecton.
- get the API reference for Tecton.


The user must be logged into a Tecton account to use the tools (using ` + "`tecton login [url])`" + `
The tools will work in the workspace that the user has currently selected (it can be changed using ` + "`tecton workspace select [name]`" + `)
`

const examplesDescription = `Finds relevant Tecton code examples using a vector database.
It is always helpful to query the examples retriever before generating Tecton code.

Input query examples:
- "examples of an Entity"
- "examples of a KinesisConfig"
- "examples of a KafkaConfig"
- "examples of a batch feature view"
- "examples of a count distinct aggregation feature view"
- "examples of a percentile aggregation feature view"
- "examples of a stream feature view"
- "examples of an aggregation stream feature view"
- "examples of a realtime feature view"
- "examples of a realtime feature view that transforms data from another feature view"
- "examples of a fraud feature"
- "examples of a recsys case"
- "examples of a test"

The output will be a collection of python code examples that use Tecton to implement features, ranked by relevance.`

const docsDescription = `Retrieves and formats Tecton documentation snippets based on a query.
Each snippet includes the TECTON DOCUMENTATION URL (Source URL),
the section header, and the relevant text chunk.

Tell the user what documentation URL they can open up to get more information.

Input query examples:
- "How do I unit test a Feature View?"
- "What are Entities in Tecton?"
- "Explain Batch Feature Views."
- "How to connect to a Kafka data source?"
- "Show me how to construct training data."
- "Tutorial for building realtime features."
- "How does ` + "`tecton apply`" + ` work?"
- "Information about Tecton data types."
- "What is a Feature Service?"
- "Scaling the online feature server."
- "Monitoring materialization jobs."`

const fullReferenceDescription = `Fetches the full Tecton SDK reference.
Use this only if you need to get the full SDK reference for all classes/functions.
If you care only about a subset, use the ` + "`query_tecton_sdk_reference_tool`" + ` tool instead.`

// Server exposes the AppContext handlers via MCP.
type Server struct {
	app     *app.AppContext
	version string
	server  *mcp.Server
	tools   []string
}

// New creates the MCP server and registers every tool.
func New(a *app.AppContext, version string) *Server {
	s := &Server{
		app:     a,
		version: version,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "Tecton",
			Title:   "Tecton MCP Server",
			Version: version,
		}, &mcp.ServerOptions{Instructions: Instructions}),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolExamples,
		Description: examplesDescription,
	}, s.examplesTool)
	s.tools = append(s.tools, ToolExamples)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolDocs,
		Description: docsDescription,
	}, s.docsTool)
	s.tools = append(s.tools, ToolDocs)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolFullReference,
		Description: fullReferenceDescription,
	}, s.fullReferenceTool)
	s.tools = append(s.tools, ToolFullReference)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolQueryReference,
		Description: s.app.Reference.Description(),
	}, s.queryReferenceTool)
	s.tools = append(s.tools, ToolQueryReference)

	s.registerFeatureServiceTools()
}

func (s *Server) registerFeatureServiceTools() {
	services := s.app.Config.Tecton.FeatureServices
	if len(services) == 0 {
		return
	}
	if s.app.Features == nil {
		slog.Warn("Unable to register feature service tools: feature server is not configured",
			"feature_services", len(services))
		return
	}
	for _, fs := range services {
		name := fs.Name + "_tool"
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        name,
			Description: featureServiceDescription(fs.Description, fs.Features),
		}, s.featureServiceTool(fs.Name))
		s.tools = append(s.tools, name)
	}
}

// Tools returns the registered tool names in registration order.
func (s *Server) Tools() []string {
	return s.tools
}

// MCP returns the underlying go-sdk server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// RunOptions selects the transport.
type RunOptions struct {
	Transport string
	Port      int
	SmokeTest bool
}

// Run serves until ctx is cancelled. In smoke-test mode it returns as soon as
// initialization is complete.
func (s *Server) Run(ctx context.Context, opts RunOptions) error {
	slog.Info("Tecton MCP Server initialized", "version", s.version, "tools", len(s.tools))
	if opts.SmokeTest {
		slog.Info("smoke test complete, exiting")
		return nil
	}

	switch opts.Transport {
	case "", "stdio":
		return s.server.Run(ctx, &mcp.StdioTransport{})
	case "http":
		return s.serveHTTP(ctx, opts.Port)
	default:
		return fmt.Errorf("unsupported transport: %s", opts.Transport)
	}
}
