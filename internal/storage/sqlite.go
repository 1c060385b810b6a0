// File: internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Storage interface using SQLite
type SQLiteStorage struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetSQLiteMigrations(),
	}
}

// Connect establishes database connection
func (s *SQLiteStorage) Connect() error {
	// Ensure directory exists
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite database", err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("SQLite database connected")

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("SQLite database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *SQLiteStorage) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *SQLiteStorage) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	s.logger.Info("Starting database migrations")

	for _, migration := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Debug("Applying migration")

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				"Migration "+migration.Version+" failed", err.Error())
		}
	}

	s.logger.Info("Database migrations completed")
	return nil
}

// SaveAlert appends an alert to the durable local log
func (s *SQLiteStorage) SaveAlert(ctx context.Context, alert *models.AlertEvent) error {
	query := `INSERT INTO alerts (timestamp, severity, subject, message) VALUES (?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, alert.Timestamp, string(alert.Severity), alert.Subject, alert.Message)
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to save alert", err.Error())
	}
	return nil
}

// GetRecentAlerts returns the most recent alerts, newest first
func (s *SQLiteStorage) GetRecentAlerts(ctx context.Context, limit int) ([]*models.AlertEvent, error) {
	query := `SELECT timestamp, severity, subject, message FROM alerts ORDER BY timestamp DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query alerts", err.Error())
	}
	defer rows.Close()

	var alerts []*models.AlertEvent
	for rows.Next() {
		var alert models.AlertEvent
		var severity string
		if err := rows.Scan(&alert.Timestamp, &severity, &alert.Subject, &alert.Message); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan alert row", err.Error())
		}
		alert.Severity = models.AlertSeverity(severity)
		alerts = append(alerts, &alert)
	}
	return alerts, rows.Err()
}

// SaveAction appends an emergency action to the action log
func (s *SQLiteStorage) SaveAction(ctx context.Context, action *models.EmergencyAction) error {
	query := `INSERT INTO emergency_actions (contract_name, address, kind, attempted_at, outcome, reason, tx_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		action.Target.Name,
		action.Target.Address.Hex(),
		string(action.Kind),
		action.AttemptedAt,
		string(action.Outcome),
		action.Reason,
		action.TxHash,
	)
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to save emergency action", err.Error())
	}
	return nil
}

// GetRecentActions returns the most recent emergency actions, newest first
func (s *SQLiteStorage) GetRecentActions(ctx context.Context, limit int) ([]*models.EmergencyAction, error) {
	query := `SELECT contract_name, address, kind, attempted_at, outcome, reason, tx_hash
		FROM emergency_actions ORDER BY attempted_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query actions", err.Error())
	}
	defer rows.Close()

	var actions []*models.EmergencyAction
	for rows.Next() {
		var action models.EmergencyAction
		var address, kind, outcome string
		if err := rows.Scan(&action.Target.Name, &address, &kind, &action.AttemptedAt, &outcome, &action.Reason, &action.TxHash); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan action row", err.Error())
		}
		action.Target.Address = common.HexToAddress(address)
		action.Kind = models.ActionKind(kind)
		action.Outcome = models.ActionOutcome(outcome)
		actions = append(actions, &action)
	}
	return actions, rows.Err()
}

// SaveSnapshot persists one health metric snapshot
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, metric *models.HealthMetric) error {
	query := `INSERT INTO health_snapshots (contract_name, address, native_balance, activity_count, observed_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	balance := "0"
	if metric.NativeBalance != nil {
		balance = metric.NativeBalance.String()
	}

	_, err := s.db.ExecContext(ctx, query,
		metric.ContractName,
		metric.Address.Hex(),
		balance,
		metric.ActivityCount,
		metric.LastObservedAt,
		string(metric.Status),
		metric.Error,
	)
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to save health snapshot", err.Error())
	}
	return nil
}

// GetLatestSnapshots returns the newest snapshot per contract
func (s *SQLiteStorage) GetLatestSnapshots(ctx context.Context) ([]*models.HealthMetric, error) {
	query := `SELECT contract_name, address, native_balance, activity_count, observed_at, status, error
		FROM health_snapshots
		WHERE id IN (SELECT MAX(id) FROM health_snapshots GROUP BY contract_name)
		ORDER BY contract_name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query snapshots", err.Error())
	}
	defer rows.Close()

	var metrics []*models.HealthMetric
	for rows.Next() {
		var metric models.HealthMetric
		var address, balance, status string
		if err := rows.Scan(&metric.ContractName, &address, &balance, &metric.ActivityCount, &metric.LastObservedAt, &status, &metric.Error); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan snapshot row", err.Error())
		}
		metric.Address = common.HexToAddress(address)
		metric.NativeBalance, _ = new(big.Int).SetString(balance, 10)
		if metric.NativeBalance == nil {
			metric.NativeBalance = big.NewInt(0)
		}
		metric.Status = models.HealthStatus(status)
		metrics = append(metrics, &metric)
	}
	return metrics, rows.Err()
}

// PruneSnapshots keeps only the newest rows per contract
func (s *SQLiteStorage) PruneSnapshots(ctx context.Context, retain int) error {
	query := `DELETE FROM health_snapshots WHERE id IN (
		SELECT id FROM (
			SELECT id, ROW_NUMBER() OVER (PARTITION BY contract_name ORDER BY id DESC) AS row_num
			FROM health_snapshots
		) ranked WHERE ranked.row_num > ?)`

	_, err := s.db.ExecContext(ctx, query, retain)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to prune snapshots", err.Error())
	}
	return nil
}

// SaveReport persists an operation report as JSON
func (s *SQLiteStorage) SaveReport(ctx context.Context, report *models.OperationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal report", err.Error())
	}

	query := `INSERT INTO reports (created_at, network, overall_status, payload) VALUES (?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query, report.Timestamp, report.Network, string(report.OverallStatus), string(payload))
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to save report", err.Error())
	}
	return nil
}

// GetRecentReports returns the most recent reports, newest first
func (s *SQLiteStorage) GetRecentReports(ctx context.Context, limit int) ([]*models.OperationReport, error) {
	query := `SELECT payload FROM reports ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query reports", err.Error())
	}
	defer rows.Close()

	var reports []*models.OperationReport
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan report row", err.Error())
		}
		var report models.OperationReport
		if err := json.Unmarshal([]byte(payload), &report); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeInternal, "Failed to unmarshal report", err.Error())
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

// GetStorageStats returns storage statistics
func (s *SQLiteStorage) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{}

	counts := map[string]*int64{
		"alerts":            &stats.TotalAlerts,
		"emergency_actions": &stats.TotalActions,
		"health_snapshots":  &stats.TotalSnapshots,
		"reports":           &stats.TotalReports,
	}

	for table, dest := range counts {
		row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table)
		if err := row.Scan(dest); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count "+table, err.Error())
		}
	}

	var latestAlert, latestReport sql.NullTime
	s.db.QueryRowContext(ctx, "SELECT MAX(timestamp) FROM alerts").Scan(&latestAlert)
	s.db.QueryRowContext(ctx, "SELECT MAX(created_at) FROM reports").Scan(&latestReport)

	if latestAlert.Valid {
		stats.LatestAlertAt = &latestAlert.Time
	}
	if latestReport.Valid {
		stats.LatestReportAt = &latestReport.Time
	}

	return stats, nil
}

var _ Storage = (*SQLiteStorage)(nil)
