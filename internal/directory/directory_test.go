package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func sampleProfiles() []*Profile {
	return []*Profile{
		{ID: "d1", FullName: "Dr. Sarah Johnson", Role: RoleDoctor, Specialization: strPtr("Cardiology"), HourlyRate: floatPtr(150)},
		{ID: "d2", FullName: "Dr. Michael Chen", Role: RoleDoctor, Specialization: strPtr("Pediatrics"), HourlyRate: floatPtr(120)},
		{ID: "d3", FullName: "Dr. Emily Rodriguez", Role: RoleDoctor, Specialization: strPtr("Dermatology")},
		{ID: "p1", FullName: "Pat Patient", Role: RolePatient},
	}
}

func TestInMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewInMemoryDirectory()
	for _, p := range sampleProfiles() {
		require.NoError(t, dir.Put(ctx, p))
	}

	got, err := dir.GetProfile(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 150.0, *got.HourlyRate)

	got.FullName = "mutated"
	again, _ := dir.GetProfile(ctx, "d1")
	assert.Equal(t, "Dr. Sarah Johnson", again.FullName, "stored profile must not alias returned copy")

	_, err = dir.GetProfile(ctx, "missing")
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	doctors, err := dir.ListDoctors(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 3)
	assert.Equal(t, "Dr. Emily Rodriguez", doctors[0].FullName)
	assert.Equal(t, "Dr. Sarah Johnson", doctors[2].FullName)
}

func TestInMemoryDirectoryRejectsInvalidProfiles(t *testing.T) {
	dir := NewInMemoryDirectory()
	assert.Error(t, dir.Put(context.Background(), &Profile{Role: RoleDoctor}))
	assert.Error(t, dir.Put(context.Background(), &Profile{ID: "x", Role: "admin"}))
}

func TestLoadSeed(t *testing.T) {
	seed := `[{"id":"d9","full_name":"Dr. Seed","role":"doctor","hourly_rate":99.5,"specialization":"General"}]`
	dir := NewInMemoryDirectory()
	n, err := dir.LoadSeed(context.Background(), strings.NewReader(seed))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := dir.GetProfile(context.Background(), "d9")
	require.NoError(t, err)
	assert.Equal(t, 99.5, *p.HourlyRate)

	_, err = dir.LoadSeed(context.Background(), strings.NewReader("{"))
	assert.Error(t, err)
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client
}

func TestRedisDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewRedisDirectory(setupTestRedis(t))
	for _, p := range sampleProfiles() {
		require.NoError(t, dir.Put(ctx, p))
	}

	got, err := dir.GetProfile(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Michael Chen", got.FullName)
	assert.True(t, got.IsDoctor())

	_, err = dir.GetProfile(ctx, "nope")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	doctors, err := dir.ListDoctors(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 3)
	assert.Equal(t, "d3", doctors[0].ID)

	// Demoting a doctor removes it from the doctor index.
	require.NoError(t, dir.Put(ctx, &Profile{ID: "d2", FullName: "Michael Chen", Role: RolePatient}))
	doctors, err = dir.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 2)
}

func TestRedisDirectoryEmptyList(t *testing.T) {
	dir := NewRedisDirectory(setupTestRedis(t))
	doctors, err := dir.ListDoctors(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doctors)
}

func TestSearchDoctors(t *testing.T) {
	all := sampleProfiles()[:3]

	tests := []struct {
		name           string
		query          string
		specialization string
		want           []string
	}{
		{"no filters returns all", "", "", []string{"d1", "d2", "d3"}},
		{"name substring case insensitive", "CHEN", "", []string{"d2"}},
		{"specialization only", "", "dermatology", []string{"d3"}},
		{"both must match", "sarah", "Pediatrics", nil},
		{"both match", "dr.", "Cardiology", []string{"d1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchDoctors(all, tt.query, tt.specialization)
			var ids []string
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestHandlerListAndGet(t *testing.T) {
	ctx := context.Background()
	dir := NewInMemoryDirectory()
	for _, p := range sampleProfiles() {
		require.NoError(t, dir.Put(ctx, p))
	}
	router := NewHandler(dir, nil).Routes()

	req := httptest.NewRequest(http.MethodGet, "/?specialization=cardiology", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListDoctorsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "d1", resp.Doctors[0].ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/d2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "patients are not browsable as doctors")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
