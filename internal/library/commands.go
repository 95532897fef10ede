package library

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/mmcdole/booksync/internal/cache"
	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/transport"
)

// Add uploads a new book. Invalid requests fail before anything is sent.
func (s *Service) Add(ctx context.Context, in domain.AddBookRequest) (*domain.AddBookResponse, error) {
	if err := validateAdd(in); err != nil {
		return nil, err
	}

	body, contentType, err := buildForm(in)
	if err != nil {
		return nil, domain.NewValidationError("books.add", err)
	}

	req := &transport.Request{
		Op:     "books.add",
		Method: http.MethodPost,
		Path:   "/books/add",
		Header: http.Header{"Content-Type": {contentType}},
		Body:   body,
	}
	var out domain.AddBookResponse
	if err := s.decode(ctx, req, &out); err != nil {
		return nil, err
	}

	s.invalidateBooks()
	s.logger.Info("added book", "id", out.ID, "title", out.Title)
	return &out, nil
}

// Delete removes a book from the primary library.
func (s *Service) Delete(ctx context.Context, bookID int) (*domain.DeleteBookResponse, error) {
	if err := validateBookID("books.delete", bookID); err != nil {
		return nil, err
	}

	req := &transport.Request{
		Op:     "books.delete",
		Method: http.MethodDelete,
		Path:   "/books/" + strconv.Itoa(bookID),
	}
	var out domain.DeleteBookResponse
	if err := s.decode(ctx, req, &out); err != nil {
		return nil, err
	}

	s.invalidateBooks()
	s.logger.Info("deleted book", "id", bookID)
	return &out, nil
}

func (s *Service) invalidateBooks() {
	n := s.cache.Invalidate(cache.BookFamilies()...)
	s.logger.Debug("invalidated book caches", "entries", n)
}

func validateBookID(op string, bookID int) error {
	if bookID <= 0 {
		return domain.NewValidationError(op, domain.ErrInvalidBookID)
	}
	return nil
}

func validateAdd(in domain.AddBookRequest) error {
	const op = "books.add"
	if strings.TrimSpace(in.Title) == "" {
		return domain.NewValidationError(op, domain.ErrMissingTitle)
	}
	if len(nonBlank(in.Authors)) == 0 {
		return domain.NewValidationError(op, domain.ErrMissingAuthors)
	}
	if in.File.Size() == 0 {
		return domain.NewValidationError(op, domain.ErrMissingFile)
	}
	return nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// buildForm encodes the add request as multipart/form-data with the file part last
func buildForm(in domain.AddBookRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"title", strings.TrimSpace(in.Title)},
		{"authors", strings.Join(nonBlank(in.Authors), ",")},
		{"publisher", strings.TrimSpace(in.Publisher)},
		{"published", strings.TrimSpace(in.Published)},
		{"isbn", strings.TrimSpace(in.ISBN)},
		{"language", strings.TrimSpace(in.Language)},
		{"series", strings.TrimSpace(in.Series)},
	}
	if in.SeriesIndex > 0 {
		fields = append(fields, struct{ name, value string }{
			"series_index", strconv.FormatFloat(in.SeriesIndex, 'f', -1, 64),
		})
	}
	fields = append(fields, struct{ name, value string }{"comments", strings.TrimSpace(in.Comments)})

	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	name := in.File.Name
	if name == "" {
		name = "book"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(in.File.Content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
