package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// searchResponse mirrors the Purify search API response.
type searchResponse struct {
	Success bool `json:"success"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Snippet string  `json:"snippet"`
		Engine  string  `json:"engine"`
		Score   float64 `json:"score"`
	} `json:"results"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// historyResponse mirrors the Purify history-search API response.
type historyResponse struct {
	Success bool `json:"success"`
	Results []struct {
		EntryType string  `json:"entry_type"`
		Query     string  `json:"query"`
		Topic     string  `json:"topic"`
		Summary   string  `json:"summary"`
		Timestamp string  `json:"timestamp"`
		Domain    string  `json:"domain"`
		Score     float64 `json:"score"`
	} `json:"results"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// proxyResponse mirrors the Purify proxy-management API response.
type proxyResponse struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Added   int    `json:"added"`
	Total   int    `json:"total"`
	Entries []struct {
		Endpoint     string  `json:"endpoint"`
		Priority     int     `json:"priority"`
		LatencyMS    float64 `json:"latency_ms"`
		FailureCount int     `json:"failure_count"`
		Disabled     bool    `json:"disabled"`
	} `json:"entries"`
	Selected *struct {
		Endpoint string `json:"endpoint"`
	} `json:"selected"`
	Warnings []string `json:"warnings"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// hitlResponse mirrors the Purify HITL-fetch API response.
type hitlResponse struct {
	Success  bool   `json:"success"`
	HTML     string `json:"html"`
	Title    string `json:"title"`
	FinalURL string `json:"final_url"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// registerAliasedTools wires the public-vocabulary tool surface on top of
// the already-registered internal tools, plus the tools that have no
// teacher precursor (search, history, proxy, HITL). Both the
// public and the internal name resolve to the same handler, satisfying the
// "both names accepted by the dispatcher" contract without duplicating
// handler logic.
func registerAliasedTools(s *server.MCPServer, apiURL, apiKey string) {
	// web_fetch is the public alias for scrape_url; scrape_url is already
	// registered under its own name in main().
	webFetchTool := mcp.NewTool("web_fetch",
		mcp.WithDescription("Alias for scrape_url: fetch a web page and return cleaned content."),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL of the web page to fetch")),
		mcp.WithString("output_format", mcp.Enum("markdown", "text", "html", "markdown_citations")),
	)
	s.AddTool(webFetchTool, handleScrapeURL(apiURL, apiKey))

	// web_fetch_batch / scrape_batch are public/internal aliases for the
	// existing batch_scrape tool.
	for _, name := range []string{"web_fetch_batch", "scrape_batch"} {
		t := mcp.NewTool(name,
			mcp.WithDescription("Alias for batch_scrape: fetch multiple URLs concurrently."),
			mcp.WithArray("urls", mcp.Required(), mcp.Description("List of URLs to scrape")),
			mcp.WithString("output_format", mcp.Enum("markdown", "text", "html", "markdown_citations")),
		)
		s.AddTool(t, handleBatchScrape(apiURL, apiKey))
	}

	// web_crawl / crawl_website are public/internal aliases for crawl_site.
	for _, name := range []string{"web_crawl", "crawl_website"} {
		t := mcp.NewTool(name,
			mcp.WithDescription("Alias for crawl_site: recursively crawl a website by depth."),
			mcp.WithString("url", mcp.Required(), mcp.Description("The starting URL to crawl from")),
			mcp.WithNumber("max_depth"),
			mcp.WithNumber("max_pages"),
		)
		s.AddTool(t, handleCrawlSite(apiURL, apiKey))
	}

	// extract_fields / extract_structured are public/internal aliases for
	// extract_data.
	for _, name := range []string{"extract_fields", "extract_structured"} {
		t := mcp.NewTool(name,
			mcp.WithDescription("Alias for extract_data: scrape a page and project structured fields."),
			mcp.WithString("url", mcp.Required(), mcp.Description("The URL of the web page to scrape")),
			mcp.WithString("schema", mcp.Description("JSON schema string (required)")),
			mcp.WithString("llm_api_key", mcp.Description("BYOK LLM API key (required; this tool always runs LLM extraction)")),
			mcp.WithString("llm_model"),
			mcp.WithString("llm_base_url"),
		)
		s.AddTool(t, handleExtractData(apiURL, apiKey))
	}

	registerSearchTools(s, apiURL, apiKey)
	registerHistoryTools(s, apiURL, apiKey)
	registerProxyTools(s, apiURL, apiKey)
	registerHITLTools(s, apiURL, apiKey)
}

func registerSearchTools(s *server.MCPServer, apiURL, apiKey string) {
	handler := handleWebSearch(apiURL, apiKey)
	for _, name := range []string{"web_search", "search_web"} {
		t := mcp.NewTool(name,
			mcp.WithDescription("Search the web and return ranked results with titles, URLs, and snippets."),
			mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
			mcp.WithNumber("max_results", mcp.Description("Maximum number of results to return (default 10)")),
		)
		s.AddTool(t, handler)
	}
}

func handleWebSearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		payload := map[string]interface{}{"query": query}
		args := request.GetArguments()
		if maxResults, ok := args["max_results"]; ok {
			payload["max_results"] = maxResults
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/search", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search request failed: %v", err)), nil
		}

		var searchResp searchResponse
		if err := json.Unmarshal(respBody, &searchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse search response: %v", err)), nil
		}
		if !searchResp.Success {
			errMsg := "search failed"
			if searchResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", searchResp.Error.Code, searchResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Found %d results:\n\n", len(searchResp.Results)))
		for i, r := range searchResp.Results {
			sb.WriteString(fmt.Sprintf("%d. %s\n   %s\n   %s\n\n", i+1, r.Title, r.URL, r.Snippet))
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func registerHistoryTools(s *server.MCPServer, apiURL, apiKey string) {
	handler := handleResearchHistory(apiURL, apiKey)
	for _, name := range []string{"memory_search", "research_history"} {
		t := mcp.NewTool(name,
			mcp.WithDescription("Search prior search/scrape operations by semantic + keyword similarity."),
			mcp.WithString("query", mcp.Description("Search query; empty scans recent history for analytics")),
			mcp.WithString("entry_type",
				mcp.Description("Filter: 'search', 'scrape', or public alias 'sync' for 'scrape'"),
				mcp.Enum("search", "scrape", "sync"),
			),
			mcp.WithNumber("max_results"),
			mcp.WithNumber("min_similarity"),
		)
		s.AddTool(t, handler)
	}
}

func handleResearchHistory(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload := map[string]interface{}{
			"query": request.GetString("query", ""),
		}
		if entryType := request.GetString("entry_type", ""); entryType != "" {
			payload["entry_type"] = entryType
		}
		args := request.GetArguments()
		if maxResults, ok := args["max_results"]; ok {
			payload["max_results"] = maxResults
		}
		if minSim, ok := args["min_similarity"]; ok {
			payload["min_similarity"] = minSim
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/history/search", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("history search failed: %v", err)), nil
		}

		var histResp historyResponse
		if err := json.Unmarshal(respBody, &histResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse history response: %v", err)), nil
		}
		if !histResp.Success {
			errMsg := "history search failed"
			if histResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", histResp.Error.Code, histResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%d matching entries:\n\n", len(histResp.Results)))
		for i, e := range histResp.Results {
			sb.WriteString(fmt.Sprintf("%d. [%s] %.2f  %s\n   %s\n\n", i+1, e.EntryType, e.Score, e.Query, e.Summary))
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func registerProxyTools(s *server.MCPServer, apiURL, apiKey string) {
	handler := handleProxyControl(apiURL, apiKey)
	for _, name := range []string{"proxy_control", "proxy_manager"} {
		t := mcp.NewTool(name,
			mcp.WithDescription("Manage the proxy pool: grab new proxies, list/status the pool, or switch/test for a host."),
			mcp.WithString("action",
				mcp.Required(),
				mcp.Description("One of: grab, list, status, switch, test"),
				mcp.Enum("grab", "list", "status", "switch", "test"),
			),
			mcp.WithString("host", mcp.Description("Target host; required for switch/test")),
		)
		s.AddTool(t, handler)
	}
}

func handleProxyControl(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action, err := request.RequireString("action")
		if err != nil {
			return mcp.NewToolResultError("action is required"), nil
		}

		payload := map[string]interface{}{"action": action}
		if host := request.GetString("host", ""); host != "" {
			payload["host"] = host
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/proxy", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("proxy request failed: %v", err)), nil
		}

		var proxyResp proxyResponse
		if err := json.Unmarshal(respBody, &proxyResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse proxy response: %v", err)), nil
		}
		if !proxyResp.Success {
			errMsg := "proxy action failed"
			if proxyResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", proxyResp.Error.Code, proxyResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		switch action {
		case "grab":
			sb.WriteString(fmt.Sprintf("Added %d proxies (pool total: %d)\n", proxyResp.Added, proxyResp.Total))
			for _, w := range proxyResp.Warnings {
				sb.WriteString("warning: " + w + "\n")
			}
		case "list":
			sb.WriteString(fmt.Sprintf("%d proxies in pool:\n\n", proxyResp.Total))
			for _, e := range proxyResp.Entries {
				sb.WriteString(fmt.Sprintf("%s  priority=%d latency=%.0fms failures=%d disabled=%v\n",
					e.Endpoint, e.Priority, e.LatencyMS, e.FailureCount, e.Disabled))
			}
		case "status":
			sb.WriteString(fmt.Sprintf("Pool size: %d\n", proxyResp.Total))
		case "switch", "test":
			if proxyResp.Selected != nil {
				sb.WriteString(fmt.Sprintf("Selected proxy: %s\n", proxyResp.Selected.Endpoint))
			}
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func registerHITLTools(s *server.MCPServer, apiURL, apiKey string) {
	handler := handleNonRobotFetch(apiURL, apiKey)
	for _, name := range []string{"hitl_web_fetch", "non_robot_search"} {
		t := mcp.NewTool(name,
			mcp.WithDescription("Human-in-the-loop fetch: opens a visible, operator-supervised browser for pages that defeat automated scraping (logins, CAPTCHAs)."),
			mcp.WithString("url", mcp.Required(), mcp.Description("The URL to fetch with operator supervision")),
			mcp.WithNumber("challenge_grace_seconds",
				mcp.Description("Public alias for the internal captcha_grace_seconds: seconds to wait before surfacing the interactive prompt"),
			),
		)
		s.AddTool(t, handler)
	}
}

func handleNonRobotFetch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]interface{}{"url": url}
		args := request.GetArguments()
		// Accept both the public and internal names for the grace-period
		// field; internal API already expects challenge_grace_seconds.
		if v, ok := args["challenge_grace_seconds"]; ok {
			payload["challenge_grace_seconds"] = v
		} else if v, ok := args["captcha_grace_seconds"]; ok {
			payload["challenge_grace_seconds"] = v
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/hitl/fetch", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("HITL fetch failed: %v", err)), nil
		}

		var hitlResp hitlResponse
		if err := json.Unmarshal(respBody, &hitlResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse HITL response: %v", err)), nil
		}
		if !hitlResp.Success {
			errMsg := "HITL fetch failed"
			if hitlResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", hitlResp.Error.Code, hitlResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		result := fmt.Sprintf("Title: %s\nFinal URL: %s\n\n%s", hitlResp.Title, hitlResp.FinalURL, hitlResp.HTML)
		return mcp.NewToolResultText(result), nil
	}
}
