package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vras/internal/catalog/store"
	dErrors "vras/pkg/domain-errors"
)

func TestWeaponLifecycle(t *testing.T) {
	svc := NewService(store.New())
	ctx := context.Background()

	weapon, err := svc.CreateWeapon(ctx, WeaponInput{Name: "G17", Category: "pistol", Caliber: "9mm", Capacity: 17})
	require.NoError(t, err)
	require.NotZero(t, weapon.ID)

	_, err = svc.CreateWeapon(ctx, WeaponInput{Name: "G17"})
	require.Error(t, err)
	assert.Equal(t, "unique", dErrors.FieldsOf(err)["name"].Rule)

	updated, err := svc.UpdateWeapon(ctx, weapon.ID, WeaponInput{Capacity: 19})
	require.NoError(t, err)
	assert.Equal(t, 19, updated.Capacity)
	assert.Equal(t, "G17", updated.Name, "unset fields stay")

	weapons, err := svc.ListWeapons(ctx)
	require.NoError(t, err)
	assert.Len(t, weapons, 1)

	require.NoError(t, svc.DeleteWeapon(ctx, weapon.ID))
	_, err = svc.GetWeapon(ctx, weapon.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestTargetsAreTenantScoped(t *testing.T) {
	svc := NewService(store.New())
	ctx := context.Background()

	mine, err := svc.CreateTarget(ctx, 1, TargetInput{Name: "silhouette", DistanceM: 25})
	require.NoError(t, err)

	// same name is free for another tenant
	_, err = svc.CreateTarget(ctx, 2, TargetInput{Name: "silhouette"})
	require.NoError(t, err)

	// cross-tenant reads look like missing rows
	_, err = svc.GetTarget(ctx, 2, mine.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	err = svc.DeleteTarget(ctx, 2, mine.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	targets, err := svc.ListTargets(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, targets, 1)
}

func TestScenarioLifecycle(t *testing.T) {
	svc := NewService(store.New())
	ctx := context.Background()

	scenario, err := svc.CreateScenario(ctx, 1, ScenarioInput{
		Name: "hostage room", Difficulty: "hard", Environment: "indoor", DurationSec: 300,
	})
	require.NoError(t, err)
	require.NotZero(t, scenario.ID)

	_, err = svc.CreateScenario(ctx, 1, ScenarioInput{Name: "hostage room"})
	require.Error(t, err, "per-tenant name uniqueness")

	updated, err := svc.UpdateScenario(ctx, 1, scenario.ID, ScenarioInput{Difficulty: "medium"})
	require.NoError(t, err)
	assert.Equal(t, "medium", updated.Difficulty)
	assert.Equal(t, "hostage room", updated.Name)

	require.NoError(t, svc.DeleteScenario(ctx, 1, scenario.ID))
}
