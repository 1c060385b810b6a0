// File: internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
)

// Storage defines the interface for durable orchestrator records: the
// alert log (the source of truth for dispatched alerts), the append-only
// emergency action log, health snapshots and operation reports.
type Storage interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Alert log operations
	SaveAlert(ctx context.Context, alert *models.AlertEvent) error
	GetRecentAlerts(ctx context.Context, limit int) ([]*models.AlertEvent, error)

	// Emergency action log operations
	SaveAction(ctx context.Context, action *models.EmergencyAction) error
	GetRecentActions(ctx context.Context, limit int) ([]*models.EmergencyAction, error)

	// Health snapshot operations
	SaveSnapshot(ctx context.Context, metric *models.HealthMetric) error
	GetLatestSnapshots(ctx context.Context) ([]*models.HealthMetric, error)
	PruneSnapshots(ctx context.Context, retain int) error

	// Report operations
	SaveReport(ctx context.Context, report *models.OperationReport) error
	GetRecentReports(ctx context.Context, limit int) ([]*models.OperationReport, error)

	// Statistics
	GetStorageStats(ctx context.Context) (*StorageStats, error)
}

// StorageStats provides storage statistics
type StorageStats struct {
	TotalAlerts    int64      `json:"total_alerts"`
	TotalActions   int64      `json:"total_actions"`
	TotalSnapshots int64      `json:"total_snapshots"`
	TotalReports   int64      `json:"total_reports"`
	LatestAlertAt  *time.Time `json:"latest_alert_at,omitempty"`
	LatestReportAt *time.Time `json:"latest_report_at,omitempty"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
	SnapshotRetain   int           `json:"snapshot_retain"`
}
