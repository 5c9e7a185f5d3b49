package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func textOrEmpty(t pgtype.Text) string {
	if t.Valid {
		return t.String
	}
	return ""
}

func timestamptzPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	tt := t.Time
	return &tt
}

func uuidOrEmpty(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// validID reports whether s parses as a uuid. Malformed ids are treated as
// missing rows instead of reaching postgres as a cast error.
func validID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func int4Ptr(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int32)
	return &i
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
