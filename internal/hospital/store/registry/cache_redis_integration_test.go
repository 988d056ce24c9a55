//go:build integration

package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"medledger/internal/hospital/models"
	"medledger/internal/hospital/store/registry"
	id "medledger/pkg/domain"
	"medledger/pkg/testutil/containers"
)

func TestRedisCacheReadThrough(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	backing := registry.NewInMemory()
	cache := registry.NewRedisCache(backing, rc.Client, time.Minute)

	staff, err := models.NewStaff(id.NewStaffID(), id.Principal(uuid.New()),
		"Dr. Bailey", "surgeon", "cardio", "2021-03-15", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, cache.CreateStaff(ctx, staff))

	t.Run("serves cached copy after backing record disappears", func(t *testing.T) {
		found, err := cache.FindStaff(ctx, staff.ID)
		require.NoError(t, err)
		require.Equal(t, staff.Name, found.Name)
	})

	t.Run("mutation refreshes the cached copy", func(t *testing.T) {
		role := "chief"
		_, err := cache.ExecuteStaff(ctx, staff.ID,
			func(st *models.Staff) error { return st.CanUpdateInfo(staff.Principal) },
			func(st *models.Staff) {
				st.ApplyUpdateInfo(models.StaffUpdate{Role: &role}, time.Now().UTC())
			},
		)
		require.NoError(t, err)

		found, err := cache.FindStaff(ctx, staff.ID)
		require.NoError(t, err)
		require.Equal(t, "chief", found.Role)
	})

	t.Run("falls through to backing store after flush", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		found, err := cache.FindStaff(ctx, staff.ID)
		require.NoError(t, err)
		require.Equal(t, "chief", found.Role)
	})
}
