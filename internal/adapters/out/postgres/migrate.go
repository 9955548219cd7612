package postgres

import (
	"context"

	"dispatch/internal/adapters/out/postgres/deliveryrepo"
	"dispatch/internal/adapters/out/postgres/driverrepo"

	"gorm.io/gorm"
)

// Models lists every table owned by this service.
func Models() []any {
	return []any{&deliveryrepo.DeliveryDTO{}, &driverrepo.DriverDTO{}}
}

// Migrate creates or updates the schema.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(Models()...)
}
