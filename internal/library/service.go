// Package library is the Book Client: listing, metadata, covers and
// mutations of the primary library, backed by the TTL cache.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/mmcdole/booksync/internal/cache"
	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/transport"
)

// API is the part of the request pipeline the book client needs
type API interface {
	Do(ctx context.Context, req *transport.Request) (*transport.Response, error)
	InvalidResponse(req *transport.Request, cause error) *domain.Error
}

// Service reads and mutates books through the pipeline.
type Service struct {
	api    API
	cache  *cache.Cache
	group  singleflight.Group
	logger *slog.Logger
}

// NewService creates a new book client.
func NewService(api API, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(cache.DefaultTTL)
	}
	return &Service{api: api, cache: c, logger: logger}
}

// Books lists a library location. With useCache a valid cached listing is
// returned without a request; either way a fresh listing is cached.
func (s *Service) Books(ctx context.Context, locationID string, useCache bool) ([]domain.Book, error) {
	if locationID == "" {
		locationID = domain.DefaultLocationID
	}
	key := cache.BooksKey(locationID)

	if useCache {
		if books, ok := cache.Lookup[[]domain.Book](s.cache, key); ok {
			s.logger.Debug("books cache hit", "location", locationID, "count", len(books))
			return books, nil
		}
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		req := &transport.Request{
			Op:     "books.list",
			Method: http.MethodGet,
			Path:   "/libraries/" + locationID + "/books",
		}
		var payload struct {
			Books *[]domain.Book `json:"books"`
		}
		if err := s.decode(ctx, req, &payload); err != nil {
			return nil, err
		}
		if payload.Books == nil {
			return nil, s.api.InvalidResponse(req, fmt.Errorf("%w: missing books array", domain.ErrInvalidResponse))
		}
		books := *payload.Books
		s.cache.Set(key, books)
		return books, nil
	})
	if err != nil {
		return nil, err
	}

	books := v.([]domain.Book)
	s.logger.Debug("fetched books", "location", locationID, "count", len(books), "shared", shared)
	return books, nil
}

// Metadata fetches the detailed record of one book.
func (s *Service) Metadata(ctx context.Context, bookID int, useCache bool) (*domain.BookMetadata, error) {
	if err := validateBookID("books.metadata", bookID); err != nil {
		return nil, err
	}
	key := cache.MetadataKey(bookID)

	if useCache {
		if md, ok := cache.Lookup[*domain.BookMetadata](s.cache, key); ok {
			return md, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		req := &transport.Request{
			Op:     "books.metadata",
			Method: http.MethodGet,
			Path:   "/books/" + strconv.Itoa(bookID) + "/metadata",
		}
		var payload struct {
			Metadata *domain.BookMetadata `json:"metadata"`
		}
		if err := s.decode(ctx, req, &payload); err != nil {
			return nil, err
		}
		if payload.Metadata == nil {
			return nil, s.api.InvalidResponse(req, fmt.Errorf("%w: missing metadata", domain.ErrInvalidResponse))
		}
		s.cache.Set(key, payload.Metadata)
		return payload.Metadata, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.BookMetadata), nil
}

// Cover returns the raw cover image. Covers are always served from cache when valid.
func (s *Service) Cover(ctx context.Context, bookID int) ([]byte, error) {
	if err := validateBookID("books.cover", bookID); err != nil {
		return nil, err
	}
	key := cache.CoverKey(bookID)

	if img, ok := cache.Lookup[[]byte](s.cache, key); ok {
		return img, nil
	}

	resp, err := s.api.Do(ctx, &transport.Request{
		Op:     "books.cover",
		Method: http.MethodGet,
		Path:   "/books/" + strconv.Itoa(bookID) + "/cover",
		Header: http.Header{"Accept": {"image/*"}},
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, resp.Body)
	return resp.Body, nil
}

// Refresh drops every cached listing and reloads locationID from the server.
func (s *Service) Refresh(ctx context.Context, locationID string) ([]domain.Book, error) {
	n := s.cache.Invalidate(cache.FamilyBooks)
	s.logger.Info("invalidated books cache", "entries", n)
	return s.Books(ctx, locationID, false)
}

// ClearCache drops every cached response
func (s *Service) ClearCache() {
	n := s.cache.Invalidate()
	s.logger.Info("invalidated all cache", "entries", n)
}

func (s *Service) decode(ctx context.Context, req *transport.Request, v any) error {
	resp, err := s.api.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Decode(v); err != nil {
		return s.api.InvalidResponse(req, err)
	}
	return nil
}
