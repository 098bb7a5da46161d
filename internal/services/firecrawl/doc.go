// Package firecrawl provides a thin client for the Firecrawl search and
// scrape API used during competitor research.
package firecrawl
