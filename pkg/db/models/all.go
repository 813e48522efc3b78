package models

// All lists every ledger model in dependency order.
func All() []any {
	return []any{
		&Policy{},
		&Coverage{},
		&Claim{},
		&ClaimAssessment{},
		&ClaimPayment{},
		&Warranty{},
		&ServiceWarranty{},
		&DeliveryWarranty{},
		&WarrantyClaim{},
		&RiskAssessment{},
		&JobCompletion{},
		&AuditLog{},
		&NumberSequence{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
