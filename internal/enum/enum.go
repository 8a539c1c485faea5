package enum

// ── Requisition workflow (CHECK constrained in DB) ──
//
// Status literals carry an embedded space because the legacy data does;
// nothing outside this package should spell them out.

const (
	StatusGenerated    = "NEC"
	StatusNutritionist = "NEC NUTRI"
	StatusCoordination = "NEC COORD"
)

// ── Roles (CHECK constrained in DB) ──

const (
	RoleAdmin        = "ADMIN"
	RoleNutritionist = "NUTRITIONIST"
	RoleCoordination = "COORDINATION"
	RoleLogistics    = "LOGISTICS"
)

// ── View modes for the needs listing (no DB constraint) ──

const (
	ViewByRequisition = "padrao"
	ViewIndividual    = "individual"
	ViewConsolidated  = "consolidado"
)

// ── Adjustment kinds ──

const (
	AdjustmentNutritionist = "NUTRI"
	AdjustmentCoordination = "COORD"
)

// ── Release hub event types ──

const (
	EventRequisitionReleased = "requisition.released"
	EventRequisitionDeleted  = "requisition.deleted"
)
