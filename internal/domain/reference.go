package domain

import "time"

// ReferenceKind names the organizational grouping a Reference belongs to.
type ReferenceKind string

const (
	ReferenceDistrict ReferenceKind = "district"
	ReferenceTribute  ReferenceKind = "tribute"
)

// Reference is a district or a tribute; members belong to exactly one of each.
type Reference struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type ReferenceRequest struct {
	Name string `json:"name" validate:"required,max=250"`
}
