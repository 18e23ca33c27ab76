package postgres

import (
	"github.com/jackc/pgx/v5"

	"github.com/fastygo/agroflow/domain"
)

// tableIdent admits only collection names, quoted as identifiers.
func tableIdent(table string) (string, error) {
	c, err := domain.ParseCollection(table)
	if err != nil {
		return "", err
	}
	return pgx.Identifier{c.String()}.Sanitize(), nil
}
