package enums

import "slices"

// AuditAction names a mutating action recorded in the audit log.
type AuditAction string

const (
	AuditActionCreated             AuditAction = "CREATED"
	AuditActionDeactivated         AuditAction = "DEACTIVATED"
	AuditActionExpired             AuditAction = "EXPIRED"
	AuditActionInvestigationOpened AuditAction = "INVESTIGATION_OPENED"
	AuditActionAssessed            AuditAction = "ASSESSED"
	AuditActionApproved            AuditAction = "APPROVED"
	AuditActionRejected            AuditAction = "REJECTED"
	AuditActionRiskAssessed        AuditAction = "RISK_ASSESSED"
)

var validAuditActions = []AuditAction{
	AuditActionCreated,
	AuditActionDeactivated,
	AuditActionExpired,
	AuditActionInvestigationOpened,
	AuditActionAssessed,
	AuditActionApproved,
	AuditActionRejected,
	AuditActionRiskAssessed,
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	return slices.Contains(validAuditActions, a)
}

// AuditEntityType names the kind of row an audit entry refers to.
type AuditEntityType string

const (
	AuditEntityPolicy         AuditEntityType = "policy"
	AuditEntityCoverage       AuditEntityType = "coverage"
	AuditEntityClaim          AuditEntityType = "claim"
	AuditEntityWarranty       AuditEntityType = "warranty"
	AuditEntityWarrantyClaim  AuditEntityType = "warranty_claim"
	AuditEntityRiskAssessment AuditEntityType = "risk_assessment"
)

var validAuditEntityTypes = []AuditEntityType{
	AuditEntityPolicy,
	AuditEntityCoverage,
	AuditEntityClaim,
	AuditEntityWarranty,
	AuditEntityWarrantyClaim,
	AuditEntityRiskAssessment,
}

// IsValid reports whether the value is a known AuditEntityType.
func (t AuditEntityType) IsValid() bool {
	return slices.Contains(validAuditEntityTypes, t)
}

// ParseAuditEntityType converts raw input into an AuditEntityType.
func ParseAuditEntityType(value string) (AuditEntityType, error) {
	return parse("audit entity type", value, validAuditEntityTypes)
}
