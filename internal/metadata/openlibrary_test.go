package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchByISBN(t *testing.T) {
	t.Run("maps the book and author responses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/isbn/9780441013593.json":
				w.Write([]byte(`{
					"title": "Dune",
					"authors": [{"key": "/authors/OL79034A"}],
					"publishers": ["Ace"],
					"publish_date": "1990",
					"number_of_pages": 412,
					"description": {"type": "/type/text", "value": "A desert planet."},
					"isbn_10": ["0441013597"]
				}`))
			case "/authors/OL79034A.json":
				w.Write([]byte(`{"name": "Frank Herbert"}`))
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()

		client := NewOpenLibraryClientWithBaseURL(server.URL)
		meta, err := client.SearchByISBN(context.Background(), "978-0-441-01359-3")
		require.NoError(t, err)

		assert.Equal(t, "Dune", meta.Title)
		assert.Equal(t, "Frank Herbert", meta.Author)
		assert.Equal(t, "Ace", meta.Publisher)
		assert.Equal(t, "1990", meta.PublishedDate)
		assert.Equal(t, 412, meta.PageCount)
		assert.Equal(t, "A desert planet.", meta.Description)
		assert.Equal(t, "9780441013593", meta.ISBN13)
		assert.Equal(t, "0441013597", meta.ISBN10)
		assert.Contains(t, meta.CoverURL, "9780441013593")
	})

	t.Run("rejects a malformed ISBN locally", func(t *testing.T) {
		client := NewOpenLibraryClientWithBaseURL("http://unused.invalid")
		_, err := client.SearchByISBN(context.Background(), "12345")
		assert.ErrorContains(t, err, "invalid ISBN")
	})

	t.Run("does not retry a 404", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.NotFound(w, r)
		}))
		defer server.Close()

		client := NewOpenLibraryClientWithBaseURL(server.URL)
		_, err := client.SearchByISBN(context.Background(), "9780441013593")

		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			if r.URL.Path == "/isbn/9780441013593.json" {
				w.Write([]byte(`{"title": "Dune"}`))
				return
			}
			http.NotFound(w, r)
		}))
		defer server.Close()

		client := NewOpenLibraryClientWithBaseURL(server.URL)
		meta, err := client.SearchByISBN(context.Background(), "9780441013593")

		require.NoError(t, err)
		assert.Equal(t, "Dune", meta.Title)
		assert.Equal(t, int32(3), calls.Load())
	})
}

func TestSearchByTitle(t *testing.T) {
	t.Run("picks the best match from search results", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/search.json", r.URL.Path)
			w.Write([]byte(`{
				"numFound": 2,
				"docs": [
					{"title": "Dune Messiah", "author_name": ["Frank Herbert"]},
					{
						"title": "Dune",
						"author_name": ["Frank Herbert"],
						"first_publish_year": 1965,
						"publisher": ["Chilton"],
						"isbn": ["0441013597", "9780441013593"],
						"cover_i": 12345
					}
				]
			}`))
		}))
		defer server.Close()

		client := NewOpenLibraryClientWithBaseURL(server.URL)
		meta, err := client.SearchByTitle(context.Background(), "Dune", "Frank Herbert")
		require.NoError(t, err)

		assert.Equal(t, "Dune", meta.Title)
		assert.Equal(t, "Frank Herbert", meta.Author)
		assert.Equal(t, "1965", meta.PublishedDate)
		assert.Equal(t, "Chilton", meta.Publisher)
		assert.Equal(t, "9780441013593", meta.ISBN13)
		assert.Equal(t, "0441013597", meta.ISBN10)
	})

	t.Run("empty result set is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"numFound": 0, "docs": []}`))
		}))
		defer server.Close()

		client := NewOpenLibraryClientWithBaseURL(server.URL)
		_, err := client.SearchByTitle(context.Background(), "Nonexistent", "")
		assert.ErrorContains(t, err, "no results")
	})

	t.Run("empty title is rejected locally", func(t *testing.T) {
		client := NewOpenLibraryClientWithBaseURL("http://unused.invalid")
		_, err := client.SearchByTitle(context.Background(), "", "Frank Herbert")
		assert.ErrorContains(t, err, "title is required")
	})
}

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "9780441013593", normalizeISBN("978-0-441-01359-3"))
	assert.Equal(t, "0441013597", normalizeISBN("0 441 01359 7"))
	assert.Empty(t, normalizeISBN("12345"))
	assert.Empty(t, normalizeISBN(""))
}
