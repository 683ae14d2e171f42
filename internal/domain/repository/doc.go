// Package repository define las interfaces de repositorio de dominio.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente (PostgreSQL, SQLite o memoria).
//
// Las implementaciones concretas viven en internal/store/.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│   auth.Authenticator / services/users / oauth       │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│        UserRepository, RoleRepository               │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	         ┌──────────────┼──────────────┐
//	         ▼              ▼              ▼
//	┌─────────────┐  ┌─────────────┐  ┌─────────────┐
//	│   store/    │  │   store/    │  │   store/    │
//	│     pg      │  │   sqlite    │  │   memory    │
//	└─────────────┘  └─────────────┘  └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Username y nombre de rol se comparan sin distinguir mayúsculas
//   - Errores de dominio están en errors.go
package repository
