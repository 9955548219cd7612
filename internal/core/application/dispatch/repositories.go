package dispatch

import (
	"context"

	"dispatch/internal/core/ports"
)

type (
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	DeliveryRepoFactory interface {
		DeliveryRepository() ports.DeliveryRepository
	}

	DriverRepoFactory interface {
		DriverRepository() ports.DriverRepository
	}

	UoW interface {
		TxManager
		DeliveryRepoFactory
		DriverRepoFactory
	}

	UoWFactory interface {
		Create() UoW
	}
)
