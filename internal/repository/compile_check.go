// Package repository contains compile-time interface checks.
package repository

// Compile-time interface checks
var _ BillsRepo = (*billsRepo)(nil)
var _ UsersRepo = (*usersRepo)(nil)
var _ TransactionsRepo = (*transactionsRepo)(nil)
var _ AuditRepo = (*auditRepo)(nil)
var _ Pinger = (*DB)(nil)
