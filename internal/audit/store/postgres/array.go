package postgres

import "github.com/lib/pq"

// pqStringArray adapts a string slice for a uuid[] bind parameter.
func pqStringArray(values []string) any {
	return pq.Array(values)
}
