package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type School struct {
	ID        int64
	Name      string
	RouteID   pgtype.Int8
	RouteName pgtype.Text
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID        int64
	Code      string
	Name      string
	Unit      string
	IsGeneric bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductEquivalence registers a generic substitute for an origin product.
// Factor converts an origin-side quantity into the generic product's unit.
type ProductEquivalence struct {
	ID               int64
	OriginProductID  int64
	GenericProductID int64
	Unit             string
	Factor           pgtype.Numeric
	CreatedAt        time.Time
}

type Requisition struct {
	ID              int64
	SchoolID        int64
	GroupName       string
	ConsumptionWeek string
	SupplyWeek      string
	FillDate        pgtype.Date
	Status          string
	NutritionistID  pgtype.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type RequisitionItem struct {
	ID                 int64
	RequisitionID      pgtype.Int8
	OriginProductID    int64
	Quantity           pgtype.Numeric
	NutriAdjustment    pgtype.Numeric
	CoordAdjustment    pgtype.Numeric
	SubstituteID       pgtype.Int8
	ConversionFactor   pgtype.Numeric
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ProductSubstitution struct {
	ID               int64
	RequisitionID    int64
	OriginProductID  int64
	GenericProductID int64
	Unit             string
	Factor           pgtype.Numeric
	CreatedBy        uuid.UUID
	CreatedAt        time.Time
}
