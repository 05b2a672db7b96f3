package service

import (
	"context"
	"testing"
	"time"

	"clinicflow/config"
	"clinicflow/internal/domain/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type fakeHighWaterSource struct {
	marks []entity.TokenHighWater
}

func (f *fakeHighWaterSource) MaxTokenByScope(db *gorm.DB, since time.Time, limit, offset int) ([]entity.TokenHighWater, error) {
	if offset >= len(f.marks) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.marks) {
		end = len(f.marks)
	}
	return f.marks[offset:end], nil
}

func newTestTokenService(t *testing.T, source tokenHighWaterSource, cfg config.QueueConfig) (*TokenService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)

	return NewTokenService(db, client, log, source, cfg), mr
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

func TestTokenService_Allocate_Sequential(t *testing.T) {
	svc, _ := newTestTokenService(t, &fakeHighWaterSource{}, config.QueueConfig{})
	doctorID := uuid.New()
	date := today()

	for want := 1; want <= 3; want++ {
		token, err := svc.Allocate(context.Background(), doctorID, date)
		require.NoError(t, err)
		assert.Equal(t, want, token)
	}
}

func TestTokenService_Allocate_ScopeIsolation(t *testing.T) {
	svc, _ := newTestTokenService(t, &fakeHighWaterSource{}, config.QueueConfig{})
	date := today()

	doctorA := uuid.New()
	doctorB := uuid.New()

	tokenA, err := svc.Allocate(context.Background(), doctorA, date)
	require.NoError(t, err)
	tokenB, err := svc.Allocate(context.Background(), doctorB, date)
	require.NoError(t, err)

	// Each scope has its own counter
	assert.Equal(t, 1, tokenA)
	assert.Equal(t, 1, tokenB)

	tokenA2, err := svc.Allocate(context.Background(), doctorA, date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, tokenA2)
}

func TestTokenService_Allocate_SetsExpiry(t *testing.T) {
	svc, mr := newTestTokenService(t, &fakeHighWaterSource{}, config.QueueConfig{})
	doctorID := uuid.New()
	date := today()

	_, err := svc.Allocate(context.Background(), doctorID, date)
	require.NoError(t, err)

	key := RedisTokenKeyPrefix + doctorID.String() + ":" + date.Format("2006-01-02")
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestTokenService_Allocate_ScopePolicy(t *testing.T) {
	tests := []struct {
		name    string
		grace   time.Duration
		date    time.Time
		wantErr bool
	}{
		{"today is valid", 0, today(), false},
		{"tomorrow is valid", 0, today().AddDate(0, 0, 1), false},
		{"yesterday rejected without grace", 0, today().AddDate(0, 0, -1), true},
		{"yesterday allowed inside grace", 48 * time.Hour, today().AddDate(0, 0, -1), false},
		{"beyond grace rejected", 24 * time.Hour, today().AddDate(0, 0, -3), true},
		{"zero date rejected", 0, time.Time{}, true},
		{"beyond horizon rejected", 0, today().AddDate(0, 0, 120), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestTokenService(t, &fakeHighWaterSource{}, config.QueueConfig{TokenGrace: tt.grace})

			_, err := svc.Allocate(context.Background(), uuid.New(), tt.date)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScope)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenService_SyncOnStartup(t *testing.T) {
	doctorID := uuid.New()
	date := today()
	source := &fakeHighWaterSource{
		marks: []entity.TokenHighWater{
			{DoctorID: doctorID, Date: date, MaxToken: 17},
		},
	}
	svc, _ := newTestTokenService(t, source, config.QueueConfig{})

	require.NoError(t, svc.SyncOnStartup(context.Background()))

	// The next allocation continues above the database high-water mark
	token, err := svc.Allocate(context.Background(), doctorID, date)
	require.NoError(t, err)
	assert.Equal(t, 18, token)

	// Other scopes are unaffected
	token, err = svc.Allocate(context.Background(), uuid.New(), date)
	require.NoError(t, err)
	assert.Equal(t, 1, token)
}

func TestTokenService_SyncOnStartup_EmptyDatabase(t *testing.T) {
	svc, _ := newTestTokenService(t, &fakeHighWaterSource{}, config.QueueConfig{})
	require.NoError(t, svc.SyncOnStartup(context.Background()))
}
