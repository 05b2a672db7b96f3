package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"clinicflow/internal/delivery/dto"
	"clinicflow/pkg/validator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAvailabilityUsecase struct {
	searched *dto.SearchAvailabilityRequest
}

func (u *fakeAvailabilityUsecase) CreateAvailability(ctx context.Context, req *dto.CreateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	return &dto.AvailabilityResponse{}, nil
}

func (u *fakeAvailabilityUsecase) GetAvailability(ctx context.Context, windowID int) (*dto.AvailabilityResponse, error) {
	return &dto.AvailabilityResponse{ID: windowID}, nil
}

func (u *fakeAvailabilityUsecase) GetAvailabilitiesByDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityListResponse, error) {
	return &dto.AvailabilityListResponse{}, nil
}

func (u *fakeAvailabilityUsecase) SearchAvailabilities(ctx context.Context, req *dto.SearchAvailabilityRequest) (*dto.AvailabilityListResponse, error) {
	u.searched = req
	return &dto.AvailabilityListResponse{}, nil
}

func (u *fakeAvailabilityUsecase) UpdateAvailability(ctx context.Context, windowID int, req *dto.UpdateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	return &dto.AvailabilityResponse{ID: windowID}, nil
}

func (u *fakeAvailabilityUsecase) DeleteAvailability(ctx context.Context, windowID int) error {
	return nil
}

func TestAvailabilityHandler_Search_MapsQueryParams(t *testing.T) {
	fake := &fakeAvailabilityUsecase{}
	h := NewAvailabilityHandler(fake, validator.NewValidator())

	r := httptest.NewRequest(http.MethodGet,
		"/api/v1/availabilities?date=2026-09-01&end_at=2026-09-07&doctor_name=Sari&specialization=dental", nil)
	w := httptest.NewRecorder()

	h.Search(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, fake.searched)
	assert.Equal(t, "2026-09-01", fake.searched.StartAt)
	assert.Equal(t, "2026-09-07", fake.searched.EndAt)
	assert.Equal(t, "Sari", fake.searched.DoctorName)
	assert.Equal(t, "dental", fake.searched.Specialization)
}

func TestAvailabilityHandler_Search_EmptyQueryIsOpenEnded(t *testing.T) {
	fake := &fakeAvailabilityUsecase{}
	h := NewAvailabilityHandler(fake, validator.NewValidator())

	w := httptest.NewRecorder()
	h.Search(w, httptest.NewRequest(http.MethodGet, "/api/v1/availabilities", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, fake.searched)
	assert.Empty(t, fake.searched.StartAt)
	assert.Empty(t, fake.searched.Specialization)
}
