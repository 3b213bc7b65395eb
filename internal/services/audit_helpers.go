package services

import "context"

// Audit actions emitted by the authorization core and its consumers.
const (
	AuditPermissionCreate     = "permission.create"
	AuditRoleCreate           = "role.create"
	AuditRoleUpdate           = "role.update"
	AuditRoleDelete           = "role.delete"
	AuditRolePermissionsSet   = "role.set_permissions"
	AuditRolePermissionsDrop  = "role.remove_permissions"
	AuditGrantCreate          = "grant.create"
	AuditGrantRevoke          = "grant.revoke"
	AuditGrantCascadeDelete   = "grant.cascade_delete"
	AuditGrantExpire          = "grant.expire"
	AuditCompanyCreate        = "company.create"
	AuditCompanyAdminCreate   = "company.admin_create"
	AuditUserCreate           = "user.create"
	AuditJobModerate          = "job.moderate"
	AuditJobFlag              = "job.flag"
	AuditJobBulkModerate      = "job.bulk_moderate"
	AuditResultSuccess        = "success"
	AuditResultFailure        = "failure"
	auditEntityPermission     = "permission"
	auditEntityRole           = "role"
	auditEntityGrant          = "grant"
	auditEntityCompany        = "company"
	auditEntityUser           = "user"
	auditEntityJob            = "job"
)

// recordAudit forwards the event to the sink while tolerating audit failures.
func recordAudit(sink AuditSink, ctx context.Context, event AuditEvent) {
	if sink == nil {
		return
	}
	if event.Result == "" {
		event.Result = AuditResultSuccess
	}
	sink.RecordAuditEvent(ctx, event)
}
