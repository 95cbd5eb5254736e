package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/models"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
)

type complaintRepoStub struct {
	items []*models.Complaint
}

func (r *complaintRepoStub) Create(ctx context.Context, c *models.Complaint) error {
	c.ID = fmt.Sprintf("c%d", len(r.items)+1)
	copy := *c
	r.items = append(r.items, &copy)
	return nil
}

func (r *complaintRepoStub) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	for _, c := range r.items {
		if c.ID == id {
			copy := *c
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *complaintRepoStub) List(ctx context.Context, studentID *string) ([]models.Complaint, error) {
	out := make([]models.Complaint, 0)
	for _, c := range r.items {
		if studentID == nil || c.StudentID == *studentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *complaintRepoStub) UpdateStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	for _, c := range r.items {
		if c.ID == id {
			c.Status = status
			c.UpdatedAt = updatedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestComplaintServiceLifecycle(t *testing.T) {
	repo := &complaintRepoStub{}
	svc := NewComplaintService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.CreateComplaintRequest{Message: "fan broken in B-12"}, actorStudent)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusPending, created.Status)
	_, err = svc.Create(ctx, dto.CreateComplaintRequest{Message: "water leak"}, Actor{ID: "s2", Role: models.RoleStudent})
	require.NoError(t, err)

	own, err := svc.List(ctx, actorStudent)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "s1", own[0].StudentID)

	all, err := svc.List(ctx, actorWarden)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, actorTeacher)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	updated, err := svc.UpdateStatus(ctx, created.ID, dto.UpdateComplaintStatusRequest{Status: "Technician scheduled"}, actorWarden)
	require.NoError(t, err)
	assert.Equal(t, "Technician scheduled", updated.Status)
}

func TestComplaintServiceRules(t *testing.T) {
	repo := &complaintRepoStub{}
	svc := NewComplaintService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.CreateComplaintRequest{Message: "  "}, actorStudent)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, dto.CreateComplaintRequest{Message: "x"}, actorWarden)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.UpdateStatus(ctx, "c1", dto.UpdateComplaintStatusRequest{Status: "Resolved"}, actorStudent)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.UpdateStatus(ctx, "missing", dto.UpdateComplaintStatusRequest{Status: "Resolved"}, actorWarden)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.UpdateStatus(ctx, "c1", dto.UpdateComplaintStatusRequest{Status: strings.Repeat("x", 65)}, actorWarden)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.UpdateStatus(ctx, "c1", dto.UpdateComplaintStatusRequest{Status: "   "}, actorWarden)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
