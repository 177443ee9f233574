// Package aggregates implements the progress and score aggregates on gorm.
//
// Each write runs in one transaction opened here; table repos from
// internal/data/repos only ever see the dbctx.Tx they are handed.
package aggregates
