package documents

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/egov-platform/citizen-services/internal/app/domain/document"
	"github.com/egov-platform/citizen-services/internal/app/storage"
	"github.com/egov-platform/citizen-services/internal/errors"
	"github.com/egov-platform/citizen-services/pkg/logger"
)

// Service manages a user's saved document references.
type Service struct {
	store storage.DocumentStore
	log   *logger.Logger
}

func New(store storage.DocumentStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("documents")
	}
	return &Service{store: store, log: log}
}

func (s *Service) Create(ctx context.Context, userID, title, url string) (document.Document, error) {
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	if title == "" {
		return document.Document{}, errors.Validation("title is required")
	}
	if url == "" {
		return document.Document{}, errors.Validation("url is required")
	}
	doc, err := s.store.CreateDocument(ctx, document.Document{
		UserID: userID,
		Title:  title,
		URL:    url,
	})
	if err != nil {
		return document.Document{}, errors.Internal("failed to create document", err)
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]document.Document, error) {
	docs, err := s.store.ListDocuments(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to list documents", err)
	}
	return docs, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteDocument(ctx, userID, id); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("document")
		}
		return errors.Internal("failed to delete document", err)
	}
	return nil
}
