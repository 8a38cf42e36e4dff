package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/grapecity-cn/docsmcp/internal/mcpserver"
	"github.com/grapecity-cn/docsmcp/pkg/version"
)

// handleRoot negotiates the service description: a markdown manifest for
// clients that ask for it, a JSON summary otherwise.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "text/markdown") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, s.manifest())
		return
	}

	type productSummary struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
	}
	resp := struct {
		Name     string           `json:"name"`
		Version  string           `json:"version"`
		Products []productSummary `json:"products"`
	}{Name: "docsmcp", Version: version.Version}
	for _, m := range s.mounts {
		p := m.server.Product()
		resp.Products = append(resp.Products, productSummary{
			ID:       p.ID,
			Name:     p.Name,
			Endpoint: "/mcp/" + p.ID,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// manifest renders the markdown service description: per-product endpoints
// and a ready-to-paste client configuration block.
func (s *Server) manifest() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# docsmcp %s\n\n", version.Version)
	b.WriteString("Documentation retrieval over the MCP Streamable HTTP transport.\n\n")

	for _, m := range s.mounts {
		p := m.server.Product()
		if p.Company != "" {
			fmt.Fprintf(&b, "## %s (%s)\n\n", p.Name, p.Company)
		} else {
			fmt.Fprintf(&b, "## %s\n\n", p.Name)
		}
		if p.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", p.Description)
		}
		fmt.Fprintf(&b, "- MCP endpoint: `POST %s/mcp/%s`\n", s.baseURL(), p.ID)
		fmt.Fprintf(&b, "- REST search: `POST %s/api/%s/search`\n", s.baseURL(), p.ID)
		fmt.Fprintf(&b, "- Collection: `%s` (%s)\n", p.Collection, p.Lang)
		fmt.Fprintf(&b, "- Tools: %s\n\n", toolList(m.server))
		fmt.Fprintf(&b, "Client configuration:\n\n```json\n{\n  \"mcpServers\": {\n    %q: {\n      \"type\": \"http\",\n      \"url\": \"%s/mcp/%s\"\n    }\n  }\n}\n```\n\n", p.ID, s.baseURL(), p.ID)
	}

	b.WriteString("Health: `GET /health`\n")
	b.WriteString("Call metrics: `GET /stats`\n")
	return b.String()
}

// toolList renders a product's tool names as inline code, comma separated.
func toolList(ps *mcpserver.Server) string {
	var names []string
	for _, t := range ps.ListTools() {
		names = append(names, "`"+t.Name+"`")
	}
	return strings.Join(names, ", ")
}

// baseURL is the advertised address. The wildcard bind address is useless
// in a sample config, so it is rendered as localhost.
func (s *Server) baseURL() string {
	host := s.cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, s.cfg.Port)
}
