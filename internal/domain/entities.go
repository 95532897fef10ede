package domain

import (
	"fmt"
	"strings"
)

// DefaultLocationID is the primary library location on the server
const DefaultLocationID = "calibre"

// Book is a single entry of a library listing
type Book struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Formats       []string `json:"formats"`
	Size          int64    `json:"size,omitempty"`
	LastModified  float64  `json:"last_modified,omitempty"` // unix seconds
	Path          string   `json:"path,omitempty"`
	FormattedSize string   `json:"formatted_size,omitempty"`
}

// AuthorLine joins authors for display
func (b Book) AuthorLine() string {
	return strings.Join(b.Authors, ", ")
}

// BookCollection is the listing envelope
type BookCollection struct {
	Books []Book `json:"books"`
	Total int    `json:"total"`
}

// BookMetadata is the detailed record for one book
type BookMetadata struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Publisher   string   `json:"publisher,omitempty"`
	Published   string   `json:"published,omitempty"`
	ISBN        string   `json:"isbn,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Comments    string   `json:"comments,omitempty"`
	Series      string   `json:"series,omitempty"`
	SeriesIndex float64  `json:"series_index,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// SeriesLine renders "Series #N" or an empty string
func (m BookMetadata) SeriesLine() string {
	if m.Series == "" {
		return ""
	}
	if m.SeriesIndex > 0 {
		return fmt.Sprintf("%s #%g", m.Series, m.SeriesIndex)
	}
	return m.Series
}

// BookFile is the file attached to an add request
type BookFile struct {
	Name    string
	Content []byte
}

// Size returns the attached file size in bytes
func (f *BookFile) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Content)
}

// AddBookRequest describes a book to upload. Optional fields are omitted when blank.
type AddBookRequest struct {
	Title       string
	Authors     []string
	Publisher   string
	Published   string
	ISBN        string
	Language    string
	Series      string
	SeriesIndex float64 // sent only when > 0
	Comments    string
	File        *BookFile
}

// AddBookResponse is returned by the server after a successful upload
type AddBookResponse struct {
	ID      int      `json:"id"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Message string   `json:"message"`
}

// DeleteBookResponse is returned by the server after a successful delete
type DeleteBookResponse struct {
	Message   string `json:"message"`
	DeletedID int    `json:"deleted_id"`
}

// ComparisonReplica is the comparison of the main library against one replica
type ComparisonReplica struct {
	Name                     string `json:"name"`
	Path                     string `json:"path"`
	UniqueToMainLibrary      int    `json:"unique_to_main_library"`
	UniqueToReplica          int    `json:"unique_to_replica"`
	UniqueToMainLibraryBooks []Book `json:"unique_to_main_library_books,omitempty"`
	UniqueToReplicaBooks     []Book `json:"unique_to_replica_books,omitempty"`
	Status                   string `json:"status"` // "success" or "error"
	Error                    string `json:"error,omitempty"`
	Note                     string `json:"note,omitempty"`
	TotalCalibreBooks        int    `json:"total_calibre_books,omitempty"`
	TotalReplicaBooks        int    `json:"total_replica_books,omitempty"`
	CommonBooks              int    `json:"common_books,omitempty"`
}

// Failed reports whether the server could not compare this replica
func (r ComparisonReplica) Failed() bool {
	return r.Status == "error"
}

// ComparisonResult is the response of compare-all
type ComparisonResult struct {
	CurrentLibraryPath string              `json:"current_library_path"`
	Replicas           []ComparisonReplica `json:"replicas"`
}

// TotalDifferences sums the books unique to either side across all replicas
func (c ComparisonResult) TotalDifferences() int {
	total := 0
	for _, r := range c.Replicas {
		total += r.UniqueToMainLibrary + r.UniqueToReplica
	}
	return total
}

// HealthStatus is the server's liveness report
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Healthy reports whether the server described itself as up
func (h HealthStatus) Healthy() bool {
	switch h.Status {
	case "ok", "healthy", "up", "":
		return true
	}
	return false
}
