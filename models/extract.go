package models

import "encoding/json"

// ExtractField mirrors extract.FieldSpec on the wire: one requested output
// field for the strict, non-LLM schema projection path.
type ExtractField struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
	FieldType   string `json:"field_type,omitempty" binding:"omitempty,oneof=string number bool array"`
	Required    bool   `json:"required,omitempty"`
}

// ExtractRequest is the payload for POST /api/v1/extract.
//
// Two extraction modes are supported:
//   - Deterministic projection (no LLMAPIKey): Fields (or Prompt, inferred
//     into fields) are resolved against well-known metadata slots and
//     bounded-window heuristics over the cleaned text. No network call
//     beyond the scrape itself.
//   - LLM-assisted (LLMAPIKey set): Schema is sent to an OpenAI-compatible
//     chat completion for free-form structured extraction.
type ExtractRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// Schema is the JSON schema describing the desired output structure for
	// the LLM-assisted path. Required when LLMAPIKey is set and Fields/Prompt
	// are both empty.
	Schema json.RawMessage `json:"schema,omitempty"`

	// Fields lists the strict output fields for the deterministic projection
	// path. Takes priority over Prompt when both are set.
	Fields []ExtractField `json:"fields,omitempty"`

	// Prompt is a natural-language description of what to extract, used to
	// infer Fields when Fields is empty and LLMAPIKey is unset.
	Prompt string `json:"prompt,omitempty"`

	// LLMAPIKey is the user's own LLM API key (BYOK). When empty, extraction
	// runs the deterministic projection path instead.
	LLMAPIKey string `json:"llm_api_key,omitempty"`

	// LLMModel is the model to use for extraction. Default: "gpt-4o-mini".
	LLMModel string `json:"llm_model,omitempty"`

	// LLMBaseURL is the base URL for the LLM API. Default: "https://api.openai.com/v1".
	// Supports any OpenAI-compatible API (DeepSeek, Groq, Azure, etc.).
	LLMBaseURL string `json:"llm_base_url,omitempty"`

	// CSSSelector is an optional CSS selector to filter HTML before cleaning.
	CSSSelector string `json:"css_selector,omitempty"`

	// OutputFormat controls the intermediate format before LLM extraction.
	// Default: "markdown".
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=markdown html text"`

	// ExtractMode controls the content extraction strategy.
	// Default: "auto" (full extractor-candidate ladder).
	ExtractMode string `json:"extract_mode,omitempty" binding:"omitempty,oneof=readability raw jsonld embedded auto pruning"`

	// WaitForNetworkIdle instructs the scraper to wait for network idle.
	// Default: true.
	WaitForNetworkIdle *bool `json:"wait_for_network_idle,omitempty"`

	// Timeout is the max duration in seconds for the scrape operation.
	// Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Stealth enables anti-bot-detection evasions.
	Stealth bool `json:"stealth,omitempty"`

	// ProxyURL sets the proxy for this request on the multi-engine
	// dispatcher's HTTP engine. The browser paths use the proxy the browser
	// was launched with.
	ProxyURL string `json:"proxy_url,omitempty" binding:"omitempty,url"`

	// FetchMode controls the fetching strategy.
	// "auto" (default), "http", "browser".
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`
}

// WantsLLM reports whether this request should run the LLM-assisted path
// rather than deterministic projection.
func (r *ExtractRequest) WantsLLM() bool {
	return r.LLMAPIKey != ""
}

// Validate checks that enough information was supplied to run either
// extraction mode.
func (r *ExtractRequest) Validate() error {
	if r.WantsLLM() {
		if len(r.Schema) == 0 {
			return NewScrapeError(ErrCodeInvalidInput, "schema is required when llm_api_key is set", nil)
		}
		return nil
	}
	if len(r.Fields) == 0 && r.Prompt == "" {
		return NewScrapeError(ErrCodeInvalidInput, "fields or prompt is required when llm_api_key is not set", nil)
	}
	return nil
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.LLMModel == "" {
		r.LLMModel = "gpt-4o-mini"
	}
	if r.LLMBaseURL == "" {
		r.LLMBaseURL = "https://api.openai.com/v1"
	}
	if r.OutputFormat == "" {
		r.OutputFormat = "markdown"
	}
	if r.ExtractMode == "" {
		r.ExtractMode = "auto"
	}
	if r.WaitForNetworkIdle == nil {
		t := true
		r.WaitForNetworkIdle = &t
	}
	if r.Timeout == 0 {
		r.Timeout = 30
	}
	if r.FetchMode == "" {
		r.FetchMode = "auto"
	}
}

// ToScrapeRequest converts an ExtractRequest into a ScrapeRequest for reuse.
func (r *ExtractRequest) ToScrapeRequest() *ScrapeRequest {
	return &ScrapeRequest{
		URL:                r.URL,
		WaitForNetworkIdle: r.WaitForNetworkIdle,
		Timeout:            r.Timeout,
		Stealth:            r.Stealth,
		ProxyURL:           r.ProxyURL,
		OutputFormat:       r.OutputFormat,
		ExtractMode:        r.ExtractMode,
		CSSSelector:        r.CSSSelector,
		FetchMode:          r.FetchMode,
	}
}

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	// Success indicates whether the extraction completed without errors.
	Success bool `json:"success"`

	// Data is the structured JSON extracted by the LLM or, without an LLM
	// key, by deterministic field projection.
	Data json.RawMessage `json:"data,omitempty"`

	// Metadata contains extracted page metadata.
	Metadata Metadata `json:"metadata"`

	// Tokens provides token estimates for the scrape pipeline.
	Tokens TokenInfo `json:"tokens"`

	// Timing provides duration breakdowns for the operation.
	Timing ExtractTimingInfo `json:"timing"`

	// LLMUsage reports the LLM token consumption. Unset in deterministic mode.
	LLMUsage *LLMUsage `json:"llm_usage,omitempty"`

	// Confidence is the [0,1] projection confidence for the deterministic
	// path; collapses to exactly 0 under the placeholder-page guard.
	// Unset (zero value) for the LLM-assisted path.
	Confidence float64 `json:"confidence,omitempty"`

	// Warnings carries non-fatal projection notes, e.g. "placeholder_page".
	Warnings []string `json:"warnings,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ExtractTimingInfo extends TimingInfo with extraction timing.
type ExtractTimingInfo struct {
	TotalMs        int64 `json:"total_ms"`
	NavigationMs   int64 `json:"navigation_ms"`
	CleaningMs     int64 `json:"cleaning_ms"`
	ExtractionMs   int64 `json:"extraction_ms"`
}

// LLMUsage reports token consumption from the LLM call.
type LLMUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
