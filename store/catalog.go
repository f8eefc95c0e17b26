// Package store holds the help-set catalog and reads the generated search
// data of its books.
package store

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/internal/persistence"
	"github.com/gcbaptista/go-help-search/model"

	searchErrors "github.com/gcbaptista/go-help-search/internal/errors"
)

// Catalog is the ordered book list of a help set together with its book
// groups and the per-book search settings. It is safe for concurrent use.
type Catalog struct {
	Mu       sync.RWMutex
	books    []model.Book
	groups   []model.BookGroup
	settings map[int]config.BookSearchSettings
}

// gobCatalogData is a helper struct for Gob encoding/decoding Catalog data.
// It excludes the mutex.
type gobCatalogData struct {
	Books    []model.Book
	Groups   []model.BookGroup
	Settings map[int]config.BookSearchSettings
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{settings: make(map[int]config.BookSearchSettings)}
}

// BookCount returns the number of books.
func (c *Catalog) BookCount() int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return len(c.books)
}

// Books returns a copy of the book list in index order.
func (c *Catalog) Books() []model.Book {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	out := make([]model.Book, len(c.books))
	copy(out, c.books)
	return out
}

// Book returns the book with the given index.
func (c *Catalog) Book(index int) (model.Book, error) {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	if index < 0 || index >= len(c.books) {
		return model.Book{}, searchErrors.NewBookNotFoundError(index)
	}
	return c.books[index], nil
}

// SearchSettings returns the search settings of a book, with defaults
// applied.
func (c *Catalog) SearchSettings(index int) (config.BookSearchSettings, error) {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	if index < 0 || index >= len(c.books) {
		return config.BookSearchSettings{}, searchErrors.NewBookNotFoundError(index)
	}
	s := c.settings[index]
	s.ApplyDefaults()
	return s, nil
}

// Groups returns the configured book groups.
func (c *Catalog) Groups() []model.BookGroup {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	out := make([]model.BookGroup, len(c.groups))
	copy(out, c.groups)
	return out
}

// SetGroups replaces the book groups. Groups referring to unknown books are
// rejected.
func (c *Catalog) SetGroups(groups []model.BookGroup) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	if err := checkGroupIndexes(groups, len(c.books)); err != nil {
		return err
	}
	c.groups = groups
	return nil
}

func checkGroupIndexes(groups []model.BookGroup, bookCount int) error {
	for _, g := range groups {
		for _, idx := range g.BookIndexes {
			if idx < 0 || idx >= bookCount {
				return searchErrors.NewBookNotFoundError(idx)
			}
		}
		if err := checkGroupIndexes(g.Groups, bookCount); err != nil {
			return err
		}
	}
	return nil
}

// AddBook registers a book and its search settings. A book whose directory
// is already registered is replaced in place and keeps its index; otherwise
// the book is appended. The stored book is returned.
func (c *Catalog) AddBook(book model.Book, settings config.BookSearchSettings) (model.Book, error) {
	if problems := settings.Validate(); len(problems) > 0 {
		return model.Book{}, searchErrors.NewValidationError("settings", problems[0])
	}
	settings.ApplyDefaults()

	c.Mu.Lock()
	defer c.Mu.Unlock()

	book.Index = len(c.books)
	for i, existing := range c.books {
		if existing.Directory == book.Directory {
			book.Index = i
			break
		}
	}
	files := make([]model.File, len(book.Files))
	copy(files, book.Files)
	for i := range files {
		files[i].Index = i
	}
	book.Files = files

	if book.Index == len(c.books) {
		c.books = append(c.books, book)
	} else {
		c.books[book.Index] = book
	}
	c.settings[book.Index] = settings
	return book, nil
}

// GobEncode implements the gob.GobEncoder interface for Catalog.
func (c *Catalog) GobEncode() ([]byte, error) {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	dataToEncode := gobCatalogData{
		Books:    c.books,
		Groups:   c.groups,
		Settings: c.settings,
	}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(dataToEncode); err != nil {
		return nil, fmt.Errorf("failed to gob encode catalog data: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for Catalog.
func (c *Catalog) GobDecode(data []byte) error {
	decodedData := gobCatalogData{}

	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&decodedData); err != nil {
		return fmt.Errorf("failed to gob decode catalog data: %w", err)
	}

	c.Mu.Lock()
	defer c.Mu.Unlock()

	c.books = decodedData.Books
	c.groups = decodedData.Groups
	c.settings = decodedData.Settings

	// Ensure maps are initialized if they were nil after decoding
	if c.settings == nil {
		c.settings = make(map[int]config.BookSearchSettings)
	}
	return nil
}

// Save writes the catalog to path.
func (c *Catalog) Save(path string) error {
	return persistence.SaveGob(path, c)
}

// LoadCatalog reads a catalog saved with Save. A missing file yields an
// empty catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog()
	if err := persistence.LoadGob(path, c); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	return c, nil
}
