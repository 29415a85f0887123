package books

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()
	dbPath := "./test_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return NewRepository(db.DB), cleanup
}

func TestSaveBook(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := &entities.Book{
		Title:  "Dune",
		Author: "Frank Herbert",
		ISBN13: "9780441013593",
	}
	require.NoError(t, repo.SaveBook(book))
	assert.NotZero(t, book.ID)

	got, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, "Frank Herbert", got.Author)
}

func TestExistsByISBN(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.SaveBook(&entities.Book{
		Title:  "Dune",
		Author: "Frank Herbert",
		ISBN10: "0441013597",
		ISBN13: "9780441013593",
	}))

	t.Run("matches either ISBN form", func(t *testing.T) {
		exists, err := repo.ExistsByISBN("9780441013593")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByISBN("0441013597")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("unknown ISBN does not match", func(t *testing.T) {
		exists, err := repo.ExistsByISBN("9780553283686")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("empty ISBN never matches", func(t *testing.T) {
		exists, err := repo.ExistsByISBN("")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestGetAllBooks(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.SaveBook(&entities.Book{Title: "Hyperion", Author: "Dan Simmons"}))
	require.NoError(t, repo.SaveBook(&entities.Book{Title: "Dune", Author: "Frank Herbert"}))

	books, err := repo.GetAllBooks()
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Hyperion", books[1].Title)
}
