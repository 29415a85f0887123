package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const userAgent = "Shelfmark/1.0 (https://github.com/shelfmark/shelfmark)"

// BookMetadata contains book information fetched from an external source.
type BookMetadata struct {
	Title         string `json:"title,omitempty"`
	Author        string `json:"author,omitempty"`
	ISBN13        string `json:"isbn13,omitempty"`
	ISBN10        string `json:"isbn10,omitempty"`
	CoverURL      string `json:"cover_url,omitempty"`
	Publisher     string `json:"publisher,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	PageCount     int    `json:"page_count,omitempty"`
	Description   string `json:"description,omitempty"`
}

// OpenLibraryClient fetches book metadata from the OpenLibrary API.
type OpenLibraryClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewOpenLibraryClient creates a new OpenLibrary API client.
func NewOpenLibraryClient() *OpenLibraryClient {
	return &OpenLibraryClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://openlibrary.org",
	}
}

// NewOpenLibraryClientWithBaseURL creates a client against a custom endpoint.
// Used by tests to point at a local server.
func NewOpenLibraryClientWithBaseURL(baseURL string) *OpenLibraryClient {
	c := NewOpenLibraryClient()
	c.baseURL = baseURL
	return c
}

// SearchByISBN looks up a book by its ISBN and returns metadata.
func (c *OpenLibraryClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("invalid ISBN")
	}

	var bookData openLibraryBook
	endpoint := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn)
	if err := c.getJSON(ctx, endpoint, &bookData); err != nil {
		return nil, fmt.Errorf("fetch ISBN %s: %w", isbn, err)
	}

	meta := &BookMetadata{
		Title:         bookData.Title,
		PublishedDate: bookData.PublishDate,
		PageCount:     bookData.NumberOfPages,
		CoverURL:      fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", isbn),
	}
	if len(isbn) == 13 {
		meta.ISBN13 = isbn
	} else {
		meta.ISBN10 = isbn
	}
	if len(bookData.ISBN13) > 0 {
		meta.ISBN13 = bookData.ISBN13[0]
	}
	if len(bookData.ISBN10) > 0 {
		meta.ISBN10 = bookData.ISBN10[0]
	}
	if len(bookData.Publishers) > 0 {
		meta.Publisher = bookData.Publishers[0]
	}

	// Description comes back either as a bare string or as {type, value}.
	switch v := bookData.Description.(type) {
	case string:
		meta.Description = v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			meta.Description = val
		}
	}

	if len(bookData.Authors) > 0 {
		if name, err := c.fetchAuthorName(ctx, bookData.Authors[0].Key); err == nil {
			meta.Author = name
		}
	}

	return meta, nil
}

// SearchByTitle looks up a book by title and author, returning the best match.
func (c *OpenLibraryClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	q := title
	if author != "" {
		q = title + " " + author
	}
	endpoint := fmt.Sprintf("%s/search.json?q=%s&limit=5", c.baseURL, url.QueryEscape(q))

	var result openLibrarySearchResult
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	if len(result.Docs) == 0 {
		return nil, fmt.Errorf("no results for %q", title)
	}

	doc := bestMatch(result.Docs, title, author)

	meta := &BookMetadata{
		Title: doc.Title,
	}
	if doc.FirstPublishYear > 0 {
		meta.PublishedDate = fmt.Sprintf("%d", doc.FirstPublishYear)
	}
	if len(doc.AuthorName) > 0 {
		meta.Author = doc.AuthorName[0]
	}
	if len(doc.Publisher) > 0 {
		meta.Publisher = doc.Publisher[0]
	}
	for _, isbn := range doc.ISBN {
		switch len(isbn) {
		case 13:
			if meta.ISBN13 == "" {
				meta.ISBN13 = isbn
			}
		case 10:
			if meta.ISBN10 == "" {
				meta.ISBN10 = isbn
			}
		}
	}
	if meta.ISBN13 != "" {
		meta.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", meta.ISBN13)
	} else if doc.CoverI != 0 {
		meta.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", doc.CoverI)
	}

	return meta, nil
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	if authorKey == "" {
		return "", fmt.Errorf("empty author key")
	}

	var authorData struct {
		Name string `json:"name"`
	}
	endpoint := fmt.Sprintf("%s%s.json", c.baseURL, authorKey)
	if err := c.getJSON(ctx, endpoint, &authorData); err != nil {
		return "", err
	}
	return authorData.Name, nil
}

// getJSON performs a GET with a short bounded retry on transient failures.
// 4xx responses are not retried.
func (c *OpenLibraryClient) getJSON(ctx context.Context, endpoint string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", userAgent)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Unrecoverable(fmt.Errorf("status %d", resp.StatusCode))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(out)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

// bestMatch scores search results, preferring exact title and author matches
// and documents that carry ISBNs.
func bestMatch(docs []openLibrarySearchDoc, title, author string) *openLibrarySearchDoc {
	titleLower := strings.ToLower(title)
	authorLower := strings.ToLower(author)

	best := &docs[0]
	bestScore := -1

	for i := range docs {
		doc := &docs[i]
		score := 0

		if strings.ToLower(doc.Title) == titleLower {
			score += 10
		} else if strings.Contains(strings.ToLower(doc.Title), titleLower) {
			score += 5
		}

		if author != "" {
			for _, docAuthor := range doc.AuthorName {
				if strings.ToLower(docAuthor) == authorLower {
					score += 10
					break
				} else if strings.Contains(strings.ToLower(docAuthor), authorLower) {
					score += 5
					break
				}
			}
		}

		if len(doc.ISBN) > 0 {
			score += 2
		}
		if doc.CoverI != 0 {
			score++
		}

		if score > bestScore {
			bestScore = score
			best = doc
		}
	}

	return best
}

// normalizeISBN removes hyphens and spaces and validates the length.
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}

	return isbn
}

// OpenLibrary API response types (internal)

type openLibraryBook struct {
	Key           string      `json:"key"`
	Title         string      `json:"title"`
	Authors       []authorRef `json:"authors"`
	Publishers    []string    `json:"publishers"`
	PublishDate   string      `json:"publish_date"`
	NumberOfPages int         `json:"number_of_pages"`
	Description   any         `json:"description"`
	ISBN10        []string    `json:"isbn_10"`
	ISBN13        []string    `json:"isbn_13"`
}

type authorRef struct {
	Key string `json:"key"`
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	Publisher        []string `json:"publisher"`
	ISBN             []string `json:"isbn"`
	CoverI           int      `json:"cover_i"`
}
