package model

import "path"

// File is one document inside a book. Index is the ordinal the generated
// search data refers to.
type File struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	URL   string `json:"url"` // Relative to the book directory
}

// Book is one indexed content unit of the help set.
// Books are loaded once and never mutated by the search core.
type Book struct {
	Index     int    `json:"index"`
	Directory string `json:"directory"`
	Title     string `json:"title"`
	Files     []File `json:"files"`
}

// FileCount returns the number of files in the book.
func (b Book) FileCount() int {
	return len(b.Files)
}

// File returns the file with the given ordinal, if present.
func (b Book) File(index int) (File, bool) {
	if index < 0 || index >= len(b.Files) {
		return File{}, false
	}
	return b.Files[index], true
}

// DocumentURL joins the book directory and a file URL into the
// book-relative document URL used for navigation.
func (b Book) DocumentURL(f File) string {
	if b.Directory == "" {
		return f.URL
	}
	return path.Join(b.Directory, f.URL)
}

// BookGroup is one node of the book-group configuration used to build
// the search scope list. BookIndexes are the books directly under the group.
type BookGroup struct {
	Title       string      `json:"title"`
	BookIndexes []int       `json:"book_indexes,omitempty"`
	Groups      []BookGroup `json:"groups,omitempty"`
}

// ResultLink is what a renderer needs to navigate to a search result.
type ResultLink struct {
	ResultIndex int    `json:"result_index"`
	BookIndex   int    `json:"book_index"`
	BookTitle   string `json:"book_title"`
	FileIndex   int    `json:"file_index"`
	Title       string `json:"title"`
	URL         string `json:"url"`
}

// FileSource is the raw content of one file fed to the help-set generator.
type FileSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// BookSource is the raw content of a book fed to the help-set generator.
type BookSource struct {
	Title     string       `json:"title"`
	Directory string       `json:"directory"`
	Files     []FileSource `json:"files"`
}
