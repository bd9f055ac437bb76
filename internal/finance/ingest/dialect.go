package ingest

import "strings"

type Dialect string

const (
	// DialectGeneric maps common date/description/amount column names.
	DialectGeneric Dialect = "generic"
	// DialectRevolut nets the Fee column against Amount and reads Completed/Started Date.
	DialectRevolut Dialect = "revolut"
)

func DetectDialect(headers []string) Dialect {
	joined := strings.ToLower(strings.Join(headers, "|"))
	if strings.Contains(joined, "completed date") || strings.Contains(joined, "started date") {
		return DialectRevolut
	}
	return DialectGeneric
}
