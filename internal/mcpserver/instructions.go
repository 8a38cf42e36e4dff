package mcpserver

import (
	"fmt"
	"strings"
)

// workflowTemplate is the fixed half of the initialize instructions. The
// product's own instructions field fills the trailing slot.
const workflowTemplate = `This server is a documentation knowledge base for %s. It provides retrieval-augmented search over API docs, code examples, tutorials, and feature guides.

Tools:
- search: Query documentation using natural language. Returns ranked summaries with doc_id.
- fetch: Retrieve full document content by doc_id from search results.
- get_code_guidelines: Get CDN/npm import paths. Call BEFORE generating any code with script tags or imports.

Workflow:
1. Search with a natural language question describing what you need.
2. Review summaries. Fetch the full document if a result looks relevant.
3. Call get_code_guidelines before generating code with imports or script references.
4. Never assume API signatures from memory - always verify via search.

%s`

// instructions assembles the string handed to clients on initialize.
func (s *Server) instructions() string {
	return strings.TrimSpace(fmt.Sprintf(workflowTemplate, s.describeProduct(), s.product.Instructions))
}

// describeProduct returns the product description, falling back to the
// display name for variants that omit one.
func (s *Server) describeProduct() string {
	if s.product.Description != "" {
		return s.product.Description
	}
	return s.product.Name
}
