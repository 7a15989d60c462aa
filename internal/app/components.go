package app

import (
	"github.com/stacklok/cmdb-registry-server/internal/lock"
	"github.com/stacklok/cmdb-registry-server/internal/service"
	"github.com/stacklok/cmdb-registry-server/internal/store"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// RegistryService provides schema and entity business logic
	RegistryService service.RegistryService

	// Store holds schemas and entities
	Store store.Store

	// Coordinator serializes mutations per resource name
	Coordinator *lock.Coordinator
}
