package cache

import (
	"net/url"
	"strconv"
)

// Key families. Every key starts with one of these so a family can be
// invalidated without knowing the exact keys.
const (
	// FamilyBooks is the prefix for library listings (/books?location_id={id})
	FamilyBooks = "/books"

	// FamilyMetadata is the prefix for book metadata (/metadata?book_id={id})
	FamilyMetadata = "/metadata"

	// FamilyCover is the prefix for cover images (/cover?book_id={id})
	FamilyCover = "/cover"

	// FamilyCompare is the key for the library comparison
	FamilyCompare = "/compare"

	// FamilyStatus is the key for the sync job status
	FamilyStatus = "/sync/status"
)

// Key derives a cache key from an endpoint and its parameters.
// url.Values.Encode sorts by key, so equal parameter sets give equal keys.
func Key(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

// BooksKey is the listing key for a library location
func BooksKey(locationID string) string {
	return Key(FamilyBooks, url.Values{"location_id": {locationID}})
}

// MetadataKey is the metadata key for a book
func MetadataKey(bookID int) string {
	return Key(FamilyMetadata, url.Values{"book_id": {strconv.Itoa(bookID)}})
}

// CoverKey is the cover key for a book
func CoverKey(bookID int) string {
	return Key(FamilyCover, url.Values{"book_id": {strconv.Itoa(bookID)}})
}

// BookFamilies are the families touched by adding or deleting a book
func BookFamilies() []string {
	return []string{FamilyBooks, FamilyMetadata, FamilyCover}
}
