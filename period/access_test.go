package period_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sitework/period-engine/period"
)

func TestIsOwner(t *testing.T) {
	p := &period.TimePeriod{WorkerID: "worker-1"}

	assert.True(t, period.IsOwner(period.Actor{ID: "worker-1"}, p))
	assert.False(t, period.IsOwner(period.Actor{ID: "worker-2"}, p))

	// An empty actor id never matches, even against an empty worker id.
	assert.False(t, period.IsOwner(period.Actor{}, &period.TimePeriod{}))
}

func TestIsSupervisorOrManager(t *testing.T) {
	// Role grants access regardless of level.
	assert.True(t, period.IsSupervisorOrManager(period.Actor{Role: period.RoleSupervisor, Level: 99}))
	assert.True(t, period.IsSupervisorOrManager(period.Actor{Role: period.RoleManager, Level: 99}))
	assert.True(t, period.IsSupervisorOrManager(period.Actor{Role: period.RoleAdmin, Level: 99}))

	// Level grants access regardless of role label.
	assert.True(t, period.IsSupervisorOrManager(period.Actor{Role: period.RoleWorker, Level: 4}))
	assert.True(t, period.IsSupervisorOrManager(period.Actor{Role: period.RoleWorker, Level: 1}))

	// An ordinary worker has neither.
	assert.False(t, period.IsSupervisorOrManager(period.Actor{Role: period.RoleWorker, Level: 99}))
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, period.IsAdmin(period.Actor{Role: period.RoleAdmin, Level: 99}))
	assert.True(t, period.IsAdmin(period.Actor{Role: period.RoleWorker, Level: 1}))
	assert.True(t, period.IsAdmin(period.Actor{Role: period.RoleWorker, Level: 0}))

	// A supervisor is not an admin.
	assert.False(t, period.IsAdmin(period.Actor{Role: period.RoleSupervisor, Level: 4}))
	assert.False(t, period.IsAdmin(period.Actor{Role: period.RoleWorker, Level: 99}))
}

func TestStatus_CanAdvanceTo(t *testing.T) {
	assert.True(t, period.StatusSubmitted.CanAdvanceTo(period.StatusSupervisorApproved))
	assert.True(t, period.StatusSupervisorApproved.CanAdvanceTo(period.StatusAdminApproved))

	// No skipping, no regression.
	assert.False(t, period.StatusSubmitted.CanAdvanceTo(period.StatusAdminApproved))
	assert.False(t, period.StatusSupervisorApproved.CanAdvanceTo(period.StatusSubmitted))
	assert.False(t, period.StatusAdminApproved.CanAdvanceTo(period.StatusSubmitted))
	assert.True(t, period.StatusAdminApproved.Terminal())
}
