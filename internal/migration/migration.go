package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	alertdomain "github.com/hexabill/hexabill/internal/alert/domain"
	customerdomain "github.com/hexabill/hexabill/internal/customer/domain"
	ledgerdomain "github.com/hexabill/hexabill/internal/ledger/domain"
	settingsdomain "github.com/hexabill/hexabill/internal/settings/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the versioned schema so the service is usable out of
// the box on a fresh postgres database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate is the fallback path for non-postgres dialects (mysql, and
// the sqlite databases used in development) where the versioned SQL does not
// apply verbatim.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&customerdomain.Customer{},
		&ledgerdomain.Sale{},
		&ledgerdomain.Payment{},
		&ledgerdomain.SaleReturn{},
		&settingsdomain.Setting{},
		&alertdomain.Alert{},
	)
}
