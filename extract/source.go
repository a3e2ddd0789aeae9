package extract

import "github.com/corestack-dev/purify/models"

// Source is the subset of a ScrapeResponse the resolver needs. It is built
// once per request from the already-cleaned scrape output so extraction
// never re-parses HTML.
type Source struct {
	URL         string
	Title       string
	Description string
	Author      string
	PublishedAt string
	SiteName    string
	CleanText   string
	WordCount   int
	Headings    []models.Heading
	Links       models.LinksResult
	Images      []models.Image
	CodeBlocks  []models.CodeBlock
}

// SourceFromScrapeResponse adapts the orchestrator's wire response into the
// shape extraction operates on.
func SourceFromScrapeResponse(r *models.ScrapeResponse) Source {
	return Source{
		URL:         r.Metadata.SourceURL,
		Title:       r.Metadata.Title,
		Description: r.Metadata.Description,
		Author:      r.Metadata.Author,
		PublishedAt: r.Metadata.PublishedAt,
		SiteName:    r.Metadata.SiteName,
		CleanText:   r.Content,
		WordCount:   r.WordCount,
		Headings:    r.Headings,
		Links:       r.Links,
		Images:      r.Images,
		CodeBlocks:  r.CodeBlocks,
	}
}
