package repository

import "strings"

// Sortable columns per entity. The sort parameter arrives from the query
// string, so only whitelisted column names and directions may reach the
// query builder.
var (
	userSortColumns = map[string]struct{}{
		"username":   {},
		"email":      {},
		"created_at": {},
		"updated_at": {},
	}
	projectSortColumns = map[string]struct{}{
		"name":       {},
		"status":     {},
		"deadline":   {},
		"created_at": {},
		"updated_at": {},
	}
	taskSortColumns = map[string]struct{}{
		"title":      {},
		"status":     {},
		"due_date":   {},
		"created_at": {},
		"updated_at": {},
	}
)

const defaultSort = "created_at DESC"

// sanitizeSort validates a caller-supplied sort expression against the
// allowed column set. The accepted form is a comma-separated list of
// "column [ASC|DESC]" terms. Anything else falls back to the default order;
// a partially valid expression is rejected as a whole.
func sanitizeSort(sort string, allowed map[string]struct{}) string {
	if sort == "" {
		return defaultSort
	}
	terms := strings.Split(sort, ",")
	cleaned := make([]string, 0, len(terms))
	for _, term := range terms {
		fields := strings.Fields(term)
		if len(fields) == 0 || len(fields) > 2 {
			return defaultSort
		}
		column := strings.ToLower(fields[0])
		if _, ok := allowed[column]; !ok {
			return defaultSort
		}
		direction := "ASC"
		if len(fields) == 2 {
			switch strings.ToUpper(fields[1]) {
			case "ASC", "DESC":
				direction = strings.ToUpper(fields[1])
			default:
				return defaultSort
			}
		}
		cleaned = append(cleaned, column+" "+direction)
	}
	return strings.Join(cleaned, ", ")
}
