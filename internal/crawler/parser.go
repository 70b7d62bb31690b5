package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the pieces of an HTML page the crawl cares about:
// the title, resolved anchor targets split by host, form actions, and
// meta tags. golang.org/x/net/html tolerates the malformed markup that
// university CMS pages routinely serve, which regex extraction does not.
type Parser struct {
	// baseURL resolves relative hrefs on the page being parsed.
	baseURL *url.URL
}

// ParseResult is the outcome of a single parsing pass.
type ParseResult struct {
	// Title is the text of the <title> tag, trimmed.
	Title string

	// Links are all resolved absolute URLs from href attributes.
	Links []string

	// InternalLinks share the page's host.
	InternalLinks []string

	// ExternalLinks point at other hosts, including sibling
	// subdomains of the same institution.
	ExternalLinks []string

	// FormActions are resolved action URLs of forms on the page. A
	// POST form whose action mentions an application path is strong
	// evidence the page itself is a portal.
	FormActions []string

	// MetaTags maps meta name/property attributes to their content.
	MetaTags map[string]string
}

// NewParser creates a parser resolving relative links against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse extracts title, links, form actions and meta tags in a single
// DOM walk.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:         make([]string, 0),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
		FormActions:   make([]string, 0),
		MetaTags:      make(map[string]string),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if href := getAttr(n, "href"); href != "" {
			resolved := p.resolveURL(href)
			if resolved != "" {
				result.Links = append(result.Links, resolved)
				p.classifyLink(resolved, result)
			}
		}

	case "form":
		if action := p.resolveURL(getAttr(n, "action")); action != "" {
			result.FormActions = append(result.FormActions, action)
		}

	case "meta":
		name := getAttr(n, "name")
		if name == "" {
			name = getAttr(n, "property") // OpenGraph uses property
		}
		content := getAttr(n, "content")
		if name != "" && content != "" {
			result.MetaTags[strings.ToLower(name)] = content
		}
	}
}

// resolveURL resolves a relative href against the base URL, filtering
// non-navigational schemes.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		href == "#" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return p.baseURL.ResolveReference(u).String()
}

// classifyLink splits a resolved link by whether it stays on the
// page's host.
func (p *Parser) classifyLink(link string, result *ParseResult) {
	u, err := url.Parse(link)
	if err != nil {
		return
	}
	if strings.EqualFold(u.Hostname(), p.baseURL.Hostname()) {
		result.InternalLinks = append(result.InternalLinks, link)
	} else if u.Hostname() != "" {
		result.ExternalLinks = append(result.ExternalLinks, link)
	} else {
		result.InternalLinks = append(result.InternalLinks, link)
	}
}

// getAttr returns the value of the named attribute, or "".
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
