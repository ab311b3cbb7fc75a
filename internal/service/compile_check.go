// Package service contains compile-time interface checks.
package service

import (
	"github.com/sefa-b/go-bill-ledger/internal/repository"
	"github.com/sefa-b/go-bill-ledger/internal/worker"
)

// Compile-time checks to ensure all service implementations satisfy their interfaces.
var (
	_ BillService  = (*BillServiceImpl)(nil)
	_ CacheService = (*cacheServiceImpl)(nil)
	_ AuditQueue   = (*worker.Pool)(nil)

	_ worker.AuditLogger = repository.AuditRepo(nil)
)
