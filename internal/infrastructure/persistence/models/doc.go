// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Files follow the bounded contexts: company.go (tenants and number
// sequences), contact.go, invoice.go, receipt.go, ledger.go (transactions),
// banking.go (accounts and FinAPI links), recurring.go, automation.go,
// referral.go, notification.go and export_record.go.
package models
