package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grapecity-cn/docsmcp/internal/config"
)

const defaultResourceMIME = "text/markdown"

// registerResources exposes the product's code-generation guidelines as
// readable resources under the guidelines:// scheme.
func (s *Server) registerResources(srv *mcp.Server) {
	for key, res := range s.product.Resources {
		uri := "guidelines://" + key
		srv.AddResource(
			&mcp.Resource{
				Name:        res.Name,
				URI:         uri,
				Description: res.Description,
				MIMEType:    resourceMIME(res),
			},
			makeGuidelineHandler(uri, res),
		)
	}
}

// makeGuidelineHandler creates a read handler serving one guideline's content.
func makeGuidelineHandler(uri string, res config.Resource) mcp.ResourceHandler {
	return func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: resourceMIME(res),
					Text:     res.Content,
				},
			},
		}, nil
	}
}

func resourceMIME(res config.Resource) string {
	if res.MIMEType != "" {
		return res.MIMEType
	}
	return defaultResourceMIME
}
