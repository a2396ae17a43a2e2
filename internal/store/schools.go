package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"schooldir/internal/school"
)

// School is one persisted row. Optional columns are nullable.
type School struct {
	ID          int64
	Name        string
	NameCN      sql.NullString
	Region      sql.NullString
	Country     sql.NullString
	City        sql.NullString
	District    sql.NullString
	Level       sql.NullString
	FinanceType sql.NullString
	Gender      sql.NullString
	Address     sql.NullString
	AddressCN   sql.NullString
	Phone       sql.NullString
	Fax         sql.NullString
	Website     sql.NullString
	Principal   sql.NullString
	Supervisor  sql.NullString
	SchoolCode  sql.NullString
	Source      sql.NullString
	SourceTrust sql.NullInt64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Trust is the stored trust level, inferred from the source tag for rows
// written before the column existed.
func (s *School) Trust() school.Trust {
	if s.SourceTrust.Valid {
		return school.Trust(s.SourceTrust.Int64)
	}
	return school.TrustOfSource(s.Source.String)
}

func (s *School) DistrictString() string { return orNA(s.District) }
func (s *School) LevelString() string    { return orNA(s.Level) }
func (s *School) FundingString() string  { return orNA(s.FinanceType) }
func (s *School) GenderString() string   { return orNA(s.Gender) }
func (s *School) PhoneString() string    { return orNA(s.Phone) }
func (s *School) FaxString() string      { return orNA(s.Fax) }
func (s *School) WebsiteString() string  { return orNA(s.Website) }
func (s *School) SourceString() string   { return orNA(s.Source) }

// DisplayName joins the English and local names.
func (s *School) DisplayName() string {
	if s.NameCN.Valid && s.NameCN.String != "" {
		return s.Name + " " + s.NameCN.String
	}
	return s.Name
}

// FullAddress lists the English then the local address.
func (s *School) FullAddress() string {
	var parts []string
	if s.Address.Valid && s.Address.String != "" {
		parts = append(parts, s.Address.String)
	}
	if s.AddressCN.Valid && s.AddressCN.String != "" {
		parts = append(parts, s.AddressCN.String)
	}
	if len(parts) == 0 {
		return "N/A"
	}
	return strings.Join(parts, "\n")
}

func orNA(v sql.NullString) string {
	if v.Valid && v.String != "" {
		return v.String
	}
	return "N/A"
}

// NullString maps the empty string to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Timestamp normalizes a time to the precision both databases keep.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

type Filter struct {
	Region string
	Level  string
}

func (f Filter) where(clauses []string, args []any) ([]string, []any) {
	if f.Region != "" {
		clauses = append(clauses, "LOWER(region) = LOWER(?)")
		args = append(args, f.Region)
	}
	if f.Level != "" {
		clauses = append(clauses, "LOWER(level) = LOWER(?)")
		args = append(args, f.Level)
	}
	return clauses, args
}

const schoolColumns = `id, name, name_cn, region, country, city, district, level, finance_type,
	gender, address, address_cn, phone, fax, website, principal, supervisor,
	school_code, source, source_trust, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSchool(row scanner) (School, error) {
	var s School
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.NameCN,
		&s.Region,
		&s.Country,
		&s.City,
		&s.District,
		&s.Level,
		&s.FinanceType,
		&s.Gender,
		&s.Address,
		&s.AddressCN,
		&s.Phone,
		&s.Fax,
		&s.Website,
		&s.Principal,
		&s.Supervisor,
		&s.SchoolCode,
		&s.Source,
		&s.SourceTrust,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func (q *Queries) querySchools(ctx context.Context, query string, args ...any) ([]School, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schools: %w", err)
	}
	defer rows.Close()

	var schools []School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schools: %w", err)
	}
	return schools, nil
}

// ListSchools returns every school matching the filter, ordered by name.
func (q *Queries) ListSchools(ctx context.Context, f Filter) ([]School, error) {
	clauses, args := f.where(nil, nil)
	query := "SELECT " + schoolColumns + " FROM schools"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY name, id"
	return q.querySchools(ctx, query, args...)
}

// SearchSchools matches query against names, district and addresses.
func (q *Queries) SearchSchools(ctx context.Context, query string, f Filter, limit int) ([]School, error) {
	if limit <= 0 {
		limit = 50
	}

	var clauses []string
	var args []any
	if query = strings.TrimSpace(query); query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		clauses = append(clauses, `(LOWER(name) LIKE ?
			OR LOWER(COALESCE(name_cn, '')) LIKE ?
			OR LOWER(COALESCE(district, '')) LIKE ?
			OR LOWER(COALESCE(address, '')) LIKE ?
			OR COALESCE(address_cn, '') LIKE ?)`)
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}
	clauses, args = f.where(clauses, args)

	sqlQuery := "SELECT " + schoolColumns + " FROM schools"
	if len(clauses) > 0 {
		sqlQuery += " WHERE " + strings.Join(clauses, " AND ")
	}
	sqlQuery += fmt.Sprintf(" ORDER BY name, id LIMIT %d", limit)
	return q.querySchools(ctx, sqlQuery, args...)
}

func (q *Queries) GetSchoolByID(ctx context.Context, id int64) (*School, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+schoolColumns+" FROM schools WHERE id = ?", id)
	s, err := scanSchool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("school %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get school %d: %w", id, err)
	}
	return &s, nil
}

// SchoolsByName returns rows whose folded name equals key. Key must already
// be folded with school.NormalizeKey.
func (q *Queries) SchoolsByName(ctx context.Context, key string) ([]School, error) {
	candidates, err := q.querySchools(ctx,
		`SELECT `+schoolColumns+` FROM schools WHERE LOWER(name) LIKE ? ESCAPE '\' ORDER BY id`,
		namePattern(key))
	if err != nil {
		return nil, err
	}
	// The pattern only narrows; equality on the folded key decides.
	matches := candidates[:0]
	for _, s := range candidates {
		if school.NormalizeKey(s.Name) == key {
			matches = append(matches, s)
		}
	}
	return matches, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// namePattern builds a LIKE pattern every name folding to key satisfies.
// Words are joined by wildcards so whitespace runs still match, and words
// outside ASCII become wildcards since SQLite's LOWER only folds ASCII.
func namePattern(key string) string {
	var b strings.Builder
	b.WriteByte('%')
	for _, w := range strings.Fields(key) {
		if isASCII(w) {
			b.WriteString(likeEscaper.Replace(w))
			b.WriteByte('%')
		}
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func (q *Queries) SchoolsByCode(ctx context.Context, code string) ([]School, error) {
	return q.querySchools(ctx,
		"SELECT "+schoolColumns+" FROM schools WHERE school_code = ? ORDER BY id", code)
}

// InsertSchool writes a new row and returns its id.
func (q *Queries) InsertSchool(ctx context.Context, s *School) (int64, error) {
	var id int64
	err := q.q.QueryRowContext(ctx, `
		INSERT INTO schools (
			name, name_cn, region, country, city, district, level, finance_type,
			gender, address, address_cn, phone, fax, website, principal, supervisor,
			school_code, source, source_trust, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		s.Name, s.NameCN, s.Region, s.Country, s.City, s.District, s.Level, s.FinanceType,
		s.Gender, s.Address, s.AddressCN, s.Phone, s.Fax, s.Website, s.Principal, s.Supervisor,
		s.SchoolCode, s.Source, s.SourceTrust, Timestamp(s.CreatedAt), Timestamp(s.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert school %q: %w", s.Name, err)
	}
	s.ID = id
	return id, nil
}

// UpdateSchool rewrites every column of an existing row except created_at.
func (q *Queries) UpdateSchool(ctx context.Context, s *School) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE schools SET
			name = ?, name_cn = ?, region = ?, country = ?, city = ?, district = ?,
			level = ?, finance_type = ?, gender = ?, address = ?, address_cn = ?,
			phone = ?, fax = ?, website = ?, principal = ?, supervisor = ?,
			school_code = ?, source = ?, source_trust = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.NameCN, s.Region, s.Country, s.City, s.District,
		s.Level, s.FinanceType, s.Gender, s.Address, s.AddressCN,
		s.Phone, s.Fax, s.Website, s.Principal, s.Supervisor,
		s.SchoolCode, s.Source, s.SourceTrust, Timestamp(s.UpdatedAt),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update school %d: %w", s.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("school %d: %w", s.ID, ErrNotFound)
	}
	return nil
}
