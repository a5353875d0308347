// Package models contains the GORM persistence models for the procurement tables.
// Models carry all ORM tags and table mappings; the domain entities stay free of them.
// Each model converts to and from its domain entity with ToDomain and FromDomain.
package models
