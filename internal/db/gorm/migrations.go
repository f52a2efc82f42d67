// Package gorm provides GORM-based database operations for clearhead.
package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: Core tables (MindDump, Thought, ThoughtRelation)
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&MindDump{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Thought{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&ThoughtRelation{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("mind_dumps", "thoughts", "thought_relations")
			},
		},

		// Migration 002: Thought vectors
		{
			ID: "002_thought_vectors",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&ThoughtVector{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("thought_vectors")
			},
		},
	})

	return m.Migrate()
}
