package enums

import "slices"

// NotificationType maps to the notification_type column of in-app notifications.
type NotificationType string

const (
	NotificationTypeNewInsuranceClaim       NotificationType = "NEW_INSURANCE_CLAIM"
	NotificationTypeInsuranceClaimCreated   NotificationType = "INSURANCE_CLAIM_CREATED"
	NotificationTypeClaimUnderInvestigation NotificationType = "CLAIM_UNDER_INVESTIGATION"
	NotificationTypeClaimAssessed           NotificationType = "CLAIM_ASSESSED"
	NotificationTypeClaimApproved           NotificationType = "CLAIM_APPROVED"
	NotificationTypeClaimRejected           NotificationType = "CLAIM_REJECTED"
	NotificationTypeWarrantyClaimCreated    NotificationType = "WARRANTY_CLAIM_CREATED"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeNewInsuranceClaim,
	NotificationTypeInsuranceClaimCreated,
	NotificationTypeClaimUnderInvestigation,
	NotificationTypeClaimAssessed,
	NotificationTypeClaimApproved,
	NotificationTypeClaimRejected,
	NotificationTypeWarrantyClaimCreated,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parse("notification type", value, validNotificationTypes)
}
