package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

type fakeAnnouncementRepo struct {
	listCalls int
	listScope scope.Scope
	rows      []models.AnnouncementDetail
	total     int
	detail    *models.AnnouncementDetail
}

func (f *fakeAnnouncementRepo) List(ctx context.Context, filter models.AnnouncementFilter, sc scope.Scope) ([]models.AnnouncementDetail, int, error) {
	f.listCalls++
	f.listScope = sc
	return f.rows, f.total, nil
}

func (f *fakeAnnouncementRepo) FindByID(ctx context.Context, id string) (*models.AnnouncementDetail, error) {
	return f.detail, nil
}

func (f *fakeAnnouncementRepo) Create(ctx context.Context, announcement *models.Announcement) error {
	return nil
}

func (f *fakeAnnouncementRepo) Update(ctx context.Context, announcement *models.Announcement) error {
	return nil
}

func (f *fakeAnnouncementRepo) Delete(ctx context.Context, id string) error { return nil }

func TestAnnouncementListEmptyClassSetStillQueriesUnclassed(t *testing.T) {
	repo := &fakeAnnouncementRepo{rows: []models.AnnouncementDetail{}, total: 0}
	resolver := &fakeResolver{scope: scope.Scope{Dimension: scope.ByClass, Result: scope.Empty(), IncludeUnclassed: true}}
	svc := NewAnnouncementService(repo, resolver, nil, nil, nil, nil)

	_, _, err := svc.List(context.Background(), studentActor(models.RoleParent), models.AnnouncementFilter{})
	require.NoError(t, err)
	// The audience scope is not a denial: school-wide rows must still match.
	require.Equal(t, 1, repo.listCalls)
	require.True(t, repo.listScope.IncludeUnclassed)
}

func TestAnnouncementGetSchoolWideRowIsVisibleToEveryone(t *testing.T) {
	detail := &models.AnnouncementDetail{Announcement: models.Announcement{ID: "ann-1", Title: "Holiday"}}
	repo := &fakeAnnouncementRepo{detail: detail}
	resolver := &fakeResolver{scope: scope.Scope{Dimension: scope.ByClass, Result: scope.Empty(), IncludeUnclassed: true}}
	svc := NewAnnouncementService(repo, resolver, nil, nil, nil, nil)

	got, err := svc.Get(context.Background(), studentActor(models.RoleStudent), "ann-1")
	require.NoError(t, err)
	require.Equal(t, "ann-1", got.ID)
}

func TestAnnouncementGetClassRowOutsideScopeReportsNotFound(t *testing.T) {
	classID := "class-9"
	detail := &models.AnnouncementDetail{Announcement: models.Announcement{ID: "ann-1", ClassID: &classID}}
	repo := &fakeAnnouncementRepo{detail: detail}
	resolver := &fakeResolver{scope: scope.Scope{Dimension: scope.ByClass, Result: scope.IDSet("class-1"), IncludeUnclassed: true}}
	svc := NewAnnouncementService(repo, resolver, nil, nil, nil, nil)

	_, err := svc.Get(context.Background(), studentActor(models.RoleStudent), "ann-1")
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}
