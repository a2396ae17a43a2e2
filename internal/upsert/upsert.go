// Package upsert applies a reconciled record to the store without losing
// curated data.
package upsert

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"schooldir/internal/reconcile"
	"schooldir/internal/school"
	"schooldir/internal/store"
)

type Kind int

const (
	Inserted Kind = iota + 1
	Updated
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

const ReasonNoChanges = "no_changes"

type Outcome struct {
	Kind   Kind
	ID     int64
	Reason string
	// Changed lists the columns an update rewrote.
	Changed []string
}

// Writer is the write surface the upserter needs. *store.Queries satisfies
// it.
type Writer interface {
	InsertSchool(ctx context.Context, s *store.School) (int64, error)
	UpdateSchool(ctx context.Context, s *store.School) error
}

type Upserter struct {
	Region  string
	Country string
	City    string
	// Force lets a lower-trust source overwrite provenance.
	Force bool
	// RunAt stamps created_at and updated_at for every write of the run.
	RunAt time.Time
}

func (u *Upserter) Upsert(ctx context.Context, w Writer, rec school.Record, d reconcile.Decision) (Outcome, error) {
	switch d.Action {
	case reconcile.Insert:
		return u.insert(ctx, w, rec)
	case reconcile.Update:
		if d.Existing == nil {
			return Outcome{}, errors.New("update decision without an existing row")
		}
		return u.update(ctx, w, rec, *d.Existing)
	default:
		return Outcome{}, errors.New("unknown reconcile action")
	}
}

func (u *Upserter) insert(ctx context.Context, w Writer, rec school.Record) (Outcome, error) {
	row := &store.School{
		Name:        rec.Name,
		NameCN:      store.NullString(rec.LocalName),
		Region:      store.NullString(u.Region),
		Country:     store.NullString(u.Country),
		City:        store.NullString(u.City),
		District:    store.NullString(rec.District),
		Level:       store.NullString(string(rec.Level)),
		FinanceType: store.NullString(string(rec.Funding)),
		Gender:      store.NullString(string(rec.Gender)),
		Address:     store.NullString(rec.Contact.Address),
		AddressCN:   store.NullString(rec.Contact.LocalAddress),
		Phone:       store.NullString(rec.Contact.Phone),
		Fax:         store.NullString(rec.Contact.Fax),
		Website:     store.NullString(rec.Contact.Website),
		Principal:   store.NullString(rec.Leadership.Principal),
		Supervisor:  store.NullString(rec.Leadership.Supervisor),
		SchoolCode:  store.NullString(rec.ExternalCode),
		Source:      store.NullString(rec.Provenance.Source),
		SourceTrust: sql.NullInt64{Int64: int64(rec.Provenance.Trust), Valid: true},
		CreatedAt:   u.RunAt,
		UpdatedAt:   u.RunAt,
	}
	id, err := w.InsertSchool(ctx, row)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: Inserted, ID: id}, nil
}

func (u *Upserter) update(ctx context.Context, w Writer, rec school.Record, row store.School) (Outcome, error) {
	m := merger{}

	if school.NormalizeKey(row.Name) != school.NormalizeKey(rec.Name) {
		row.Name = rec.Name
		m.changed = append(m.changed, "name")
	}
	m.set("name_cn", &row.NameCN, rec.LocalName)
	m.set("region", &row.Region, u.Region)
	m.set("country", &row.Country, u.Country)
	m.set("city", &row.City, u.City)
	m.set("district", &row.District, rec.District)
	m.setInferred("level", &row.Level, string(rec.Level), rec.Inferred.Level)
	m.setInferred("finance_type", &row.FinanceType, string(rec.Funding), rec.Inferred.Funding)
	m.setInferred("gender", &row.Gender, string(rec.Gender), rec.Inferred.Gender)
	m.set("address", &row.Address, rec.Contact.Address)
	m.set("address_cn", &row.AddressCN, rec.Contact.LocalAddress)
	m.set("phone", &row.Phone, rec.Contact.Phone)
	m.set("fax", &row.Fax, rec.Contact.Fax)
	m.set("website", &row.Website, rec.Contact.Website)
	m.set("principal", &row.Principal, rec.Leadership.Principal)
	m.set("supervisor", &row.Supervisor, rec.Leadership.Supervisor)
	m.set("school_code", &row.SchoolCode, rec.ExternalCode)

	if rec.Provenance.Source != "" && (u.Force || rec.Provenance.Trust >= row.Trust()) {
		m.set("source", &row.Source, rec.Provenance.Source)
		trust := int64(rec.Provenance.Trust)
		if !row.SourceTrust.Valid || row.SourceTrust.Int64 != trust {
			row.SourceTrust = sql.NullInt64{Int64: trust, Valid: true}
			m.changed = append(m.changed, "source_trust")
		}
	}

	if len(m.changed) == 0 {
		return Outcome{Kind: Skipped, ID: row.ID, Reason: ReasonNoChanges}, nil
	}

	row.UpdatedAt = u.RunAt
	if err := w.UpdateSchool(ctx, &row); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: Updated, ID: row.ID, Changed: m.changed}, nil
}

type merger struct {
	changed []string
}

// set overwrites dst with a non-empty incoming value that differs.
func (m *merger) set(col string, dst *sql.NullString, v string) {
	if v == "" || (dst.Valid && dst.String == v) {
		return
	}
	*dst = store.NullString(v)
	m.changed = append(m.changed, col)
}

// setInferred writes a defaulted value only where the row has none.
func (m *merger) setInferred(col string, dst *sql.NullString, v string, inferred bool) {
	if inferred && dst.Valid && dst.String != "" {
		return
	}
	m.set(col, dst, v)
}
