package ads

import (
	"strconv"
	"strings"
)

// BuildQuery renders a GAQL query. Empty conditions, orderBy and a
// non-positive limit are left out.
func BuildQuery(fields []string, resource string, conditions []string, orderBy string, limit int) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(" FROM ")
	b.WriteString(resource)
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	if orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(orderBy)
	}
	if limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(limit))
	}
	return b.String()
}

// Quote renders v as a single-quoted GAQL string literal.
func Quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
}

// QuoteList renders values as a GAQL list body: 'a','b'.
func QuoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Quote(v)
	}
	return strings.Join(quoted, ",")
}

// QueryFields returns the field list of a GAQL SELECT clause.
func QueryFields(query string) []string {
	query = strings.Join(strings.Fields(query), " ")
	upper := strings.ToUpper(query)
	start := strings.Index(upper, "SELECT")
	end := strings.Index(upper, " FROM ")
	if start < 0 || end < start {
		return nil
	}

	var fields []string
	for _, f := range strings.Split(query[start+len("SELECT"):end], ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// NormalizeCustomerID strips the dashes from a "123-456-7890" style ID.
func NormalizeCustomerID(id string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(id))
}
