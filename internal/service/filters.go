package service

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// containsPattern builds a LIKE pattern for a case-insensitive substring match
// against a LOWER(column). LIKE wildcards in the input are escaped with '!',
// which every supported dialect accepts in an ESCAPE clause.
func containsPattern(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// likeClause is the SQL fragment matching containsPattern against column
func likeClause(column string) string {
	return "LOWER(" + column + ") LIKE ? ESCAPE '!'"
}

// whereAnyContains ORs a substring match over several columns
func whereAnyContains(q *gorm.DB, term string, columns ...string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return q
	}
	pattern := containsPattern(term)
	clauses := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		clauses[i] = likeClause(c)
		args[i] = pattern
	}
	return q.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

// parseDay parses a YYYY-MM-DD day in UTC
func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, validationf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// monthStart truncates t to the first instant of its UTC month
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
