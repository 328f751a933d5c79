package storage

import (
	"embed"

	"github.com/md-rashed-zaman/bookable/libs/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the availability schema up to date.
func Migrate(databaseURL string) error {
	return db.Migrate(databaseURL, migrations, "migrations")
}
