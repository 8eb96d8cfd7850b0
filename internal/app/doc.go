// Package app is the composition layer of the marina gateway.
//
// # Architecture Role
//
// The app package wires the domain services over their stores, the cacher and
// the entity-changed bus, and manages lifecycle services. It is NOT a business
// logic layer; business logic belongs in internal/app/services/.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (user, boat)
//	├── storage/            # Store interfaces; memory/ and postgres/ adapters
//	├── services/           # users, boats, maintenance
//	├── httpapi/            # Action table and REST router
//	├── swagger/            # OpenAPI document and docs server
//	├── auth/               # Tokens, passwords, caller identity
//	├── cache/              # Memory, redis and no-op cachers
//	├── events/             # Entity-changed bus
//	├── validation/         # Declarative entity validators
//	├── metrics/            # Prometheus collectors
//	├── system/             # Lifecycle manager
//	└── runtime/            # Config-driven process bootstrap
//
// # Dependency Direction
//
//	cmd/gateway/
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app/httpapi, internal/app/swagger
//	      │
//	      ▼
//	internal/app (composition)
//	      │
//	      ├──► internal/app/services/ (business logic)
//	      ├──► internal/app/storage/ (adapters)
//	      └──► internal/platform/ (database, migrations)
package app
