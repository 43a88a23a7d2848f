package models

import (
	"sort"
	"strings"
	"time"

	dErrors "custodia/pkg/domain-errors"
)

// Document field names.
const (
	FieldNote          = "observacao"
	FieldFacilityID    = "unidadeId"
	FieldTotalChecked  = "totalConferidos"
	FieldTotalExpected = "totalEsperados"
	FieldUserID        = "userId"
	FieldCreatedAt     = "createdAt"
)

// Conference is one roll-call snapshot.
//
// Invariants:
//   - CreatedAt is assigned by the document store, never by the caller
//   - Records are immutable once written; they can only be deleted
type Conference struct {
	ID            string    `json:"id"`
	Note          string    `json:"observacao"`
	FacilityID    string    `json:"unidadeId"`
	TotalChecked  int       `json:"totalConferidos"`
	TotalExpected int       `json:"totalEsperados"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Missing is how many expected people were not counted.
func (c Conference) Missing() int {
	if c.TotalExpected <= c.TotalChecked {
		return 0
	}
	return c.TotalExpected - c.TotalChecked
}

// NewConference is the caller-supplied part of a roll-call record.
type NewConference struct {
	Note          string
	FacilityID    string
	TotalChecked  int
	TotalExpected int
	UserID        string
}

func (n NewConference) Validate() error {
	if strings.TrimSpace(n.UserID) == "" {
		return dErrors.New(dErrors.CodeValidation, "userId is required")
	}
	if n.TotalChecked < 0 || n.TotalExpected < 0 {
		return dErrors.New(dErrors.CodeValidation, "totals must not be negative")
	}
	return nil
}

// SortNewestFirst orders records by creation time, newest first, comparing at
// one-second resolution. Records in the same second keep their relative order.
func SortNewestFirst(records []Conference) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Unix() > records[j].CreatedAt.Unix()
	})
}
