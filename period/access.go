// access.go - Pure role predicates. These three functions are the single
// source of truth for every workflow transition; no transition re-implements
// its own threshold check.

package period

// Privilege thresholds. LOWER levels are MORE privileged.
const (
	adminLevelCeiling      = 1
	supervisorLevelCeiling = 4
)

// IsOwner reports whether the actor is the period's owning worker.
func IsOwner(actor Actor, p *TimePeriod) bool {
	return actor.ID != "" && actor.ID == p.WorkerID
}

// IsSupervisorOrManager reports whether the actor may act at the supervisor
// review stage.
func IsSupervisorOrManager(actor Actor) bool {
	switch actor.Role {
	case RoleSupervisor, RoleManager, RoleAdmin:
		return true
	}
	return actor.Level <= supervisorLevelCeiling
}

// IsAdmin reports whether the actor may give final approval.
func IsAdmin(actor Actor) bool {
	return actor.Role == RoleAdmin || actor.Level <= adminLevelCeiling
}
