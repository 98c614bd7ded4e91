package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds a row lock where the dialect has one. SQLite serializes
// writers on the database file, so it gets the plain query.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return withLock(tx, "UPDATE")
}

// forShare reads the latest committed row version under a shared lock,
// bypassing the REPEATABLE READ snapshot on MySQL.
func forShare(tx *gorm.DB) *gorm.DB {
	return withLock(tx, "SHARE")
}

func withLock(tx *gorm.DB, strength string) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: strength})
}
