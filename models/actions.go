package models

// Cookie is a single cookie to inject before navigation.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Action is one step of a scripted browser interaction sequence, executed
// in order by the scraper before final HTML extraction.
type Action struct {
	// Type selects the action: "wait", "click", "scroll", "execute_js", "scrape".
	Type string `json:"type" binding:"required,oneof=wait click scroll execute_js scrape"`

	// Selector targets an element for "wait" and "click".
	Selector string `json:"selector,omitempty"`

	// Milliseconds is a sleep duration for "wait" when Selector is empty.
	Milliseconds int `json:"milliseconds,omitempty"`

	// Direction is "up" or "down" for "scroll". Default: "down".
	Direction string `json:"direction,omitempty" binding:"omitempty,oneof=up down"`

	// Amount is the number of viewport-heights to scroll for "scroll". Default: 1.
	Amount int `json:"amount,omitempty"`

	// Code is arbitrary JavaScript for "execute_js".
	Code string `json:"code,omitempty"`
}
