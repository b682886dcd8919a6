package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hotel_reconciler/internal/domain"
)

type ComplaintService struct {
	store domain.ComplaintStore
	now   func() time.Time
}

func NewComplaintService(s domain.ComplaintStore) *ComplaintService {
	return &ComplaintService{store: s, now: time.Now}
}

// Submit stores a complaint-book entry and returns its id.
func (s *ComplaintService) Submit(ctx context.Context, c domain.Complaint) (string, error) {
	required := []struct{ name, value string }{
		{"fullName", c.FullName},
		{"documentNumber", c.DocumentNumber},
		{"email", c.Email},
		{"description", c.Description},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}

	now := s.now()
	c.ID = fmt.Sprintf("REC-%d-%s", now.UnixMilli(), uuid.NewString()[:4])
	c.Status = "pending"
	c.CreatedAt = now.UTC()
	if err := s.store.CreateComplaint(ctx, c); err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *ComplaintService) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	if id == "" || status == "" {
		return false, fmt.Errorf("%w: id and status required", domain.ErrInvalidInput)
	}
	return s.store.SetComplaintStatus(ctx, id, status)
}
