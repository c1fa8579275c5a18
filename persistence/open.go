package persistence

import "fmt"

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverGorm     = "gorm"
	DriverPostgres = "postgres"
)

// Open returns the Store for driver. dsn is ignored by the memory driver.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverGorm:
		return NewGormPostgreSQLFromDSN(dsn)
	case DriverPostgres:
		return NewPostgreSQLFromDSN(dsn)
	}
	return nil, fmt.Errorf("unknown database driver %q", driver)
}
