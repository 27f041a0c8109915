package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/642studio/bachejoa/internal/datastore"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

// ContactInput is a message from the public contact form.
type ContactInput struct {
	Name    string
	Contact string
	Topic   string
	Message string
}

// ContactService stores contact form messages.
type ContactService struct {
	store datastore.Store
	now   func() time.Time
}

// NewContactService creates a ContactService.
func NewContactService(store datastore.Store) *ContactService {
	return &ContactService{store: store, now: now}
}

// Submit validates and stores in, returning the new message id. Topic is
// optional.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (string, error) {
	fields := []struct {
		val    *string
		maxLen int
	}{
		{&in.Name, 200},
		{&in.Contact, 200},
		{&in.Topic, 200},
		{&in.Message, 0},
	}
	for _, f := range fields {
		clean, err := query.SanitizeStringValue(*f.val, f.maxLen)
		if err != nil {
			return "", invalid("Field too long.")
		}
		*f.val = clean
	}
	if in.Name == "" || in.Contact == "" || in.Message == "" {
		return "", invalid("Missing required fields.")
	}

	req := model.ContactRequest{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Contact:   in.Contact,
		Topic:     in.Topic,
		Message:   in.Message,
		CreatedAt: s.now(),
	}
	if err := s.store.Insert(ctx, datastore.TableContactRequest, datastore.Row{
		"id":         req.ID,
		"name":       req.Name,
		"contact":    req.Contact,
		"topic":      req.Topic,
		"message":    req.Message,
		"created_at": req.CreatedAt,
	}); err != nil {
		return "", fmt.Errorf("store contact request: %w", err)
	}
	return req.ID, nil
}
