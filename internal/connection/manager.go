// File: internal/connection/manager.go
package connection

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/config"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/metrics"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// Client defines the ledger client interface. Every call is fallible
// and network-latency-bound; callers own their timeouts via context.
type Client interface {
	// Read-only queries, safe for concurrent use
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	GetActivityCount(ctx context.Context, address common.Address) (uint64, error)
	GetFeeLevel(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, address common.Address, data []byte) ([]byte, error)

	// Transact issues a state-mutating call signed by the privileged
	// signer and returns the transaction hash
	Transact(ctx context.Context, address common.Address, data []byte) (string, error)

	HasSigner() bool
	HealthCheck(ctx context.Context) error
	Close() error
}

// ConnectionManager implements Client against a primary RSK node with
// backup-node failover
type ConnectionManager struct {
	config     *config.RSKConfig
	primaryURL string
	backupURLs []string

	mu              sync.RWMutex
	client          *ethclient.Client
	currentIndex    int
	lastHealthCheck time.Time
	isHealthy       bool

	signer *Signer
	logger *logrus.Logger

	metricsManager *metrics.Manager
}

// NewConnectionManager creates a new connection manager. The signer is
// optional; read-only deployments pass nil.
func NewConnectionManager(cfg *config.RSKConfig, signer *Signer) *ConnectionManager {
	return &ConnectionManager{
		config:     cfg,
		primaryURL: cfg.NodeURL,
		backupURLs: cfg.BackupNodes,
		signer:     signer,
		logger:     utils.GetLogger(),
	}
}

// SetMetricsManager wires the optional metrics manager
func (cm *ConnectionManager) SetMetricsManager(m *metrics.Manager) {
	cm.metricsManager = m
}

// observeRPC records outcome and latency for one node call
func (cm *ConnectionManager) observeRPC(method string, start time.Time, err error) {
	if cm.metricsManager == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	pm := cm.metricsManager.GetPrometheusMetrics()
	pm.RPCRequestsTotal.WithLabelValues(method, status).Inc()
	pm.RPCRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// getClient returns a connected client, dialing if necessary
func (cm *ConnectionManager) getClient(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.RLock()
	client := cm.client
	lastCheck := cm.lastHealthCheck
	cm.mu.RUnlock()

	if client == nil {
		return cm.connect(ctx)
	}

	// Test the connection if it's been a while since last health check
	if time.Since(lastCheck) > time.Minute {
		if err := cm.quickHealthCheck(ctx, client); err != nil {
			cm.logger.WithError(err).Warn("Client health check failed, reconnecting")
			return cm.reconnect(ctx)
		}
	}

	return client, nil
}

// connect establishes a new connection, rotating through backup nodes
func (cm *ConnectionManager) connect(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	urls := cm.getAllURLs()

	for attempt := 0; attempt < cm.config.RetryAttempts; attempt++ {
		for i, url := range urls {
			cm.logger.WithFields(logrus.Fields{"url": url, "attempt": attempt + 1}).Info("Attempting RSK connection")

			client, err := cm.dialWithTimeout(ctx, url)
			if err != nil {
				cm.logger.WithFields(logrus.Fields{"url": url, "error": err}).Warn("Connection failed")
				continue
			}

			// Verify the connection works
			if err := cm.quickHealthCheck(ctx, client); err != nil {
				client.Close()
				cm.logger.WithFields(logrus.Fields{"url": url, "error": err}).Warn("Health check failed after connection")
				continue
			}

			cm.client = client
			cm.currentIndex = i
			cm.isHealthy = true
			cm.lastHealthCheck = time.Now()

			cm.logger.WithField("url", url).Info("Connected to RSK node")
			return client, nil
		}

		if attempt < cm.config.RetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cm.config.RetryDelay):
			}
		}
	}

	return nil, utils.NewAppError(utils.ErrCodeConnection, "Failed to connect to any RSK node",
		"All connection attempts exhausted")
}

// reconnect drops the current client and dials again
func (cm *ConnectionManager) reconnect(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.Lock()
	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}
	cm.mu.Unlock()

	return cm.connect(ctx)
}

// dialWithTimeout creates a connection with timeout
func (cm *ConnectionManager) dialWithTimeout(ctx context.Context, url string) (*ethclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cm.config.RequestTimeout)
	defer cancel()

	return ethclient.DialContext(dialCtx, url)
}

// quickHealthCheck performs a quick health check
func (cm *ConnectionManager) quickHealthCheck(ctx context.Context, client *ethclient.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := client.NetworkID(checkCtx)
	return err
}

// GetBalance returns the native balance of an address in wei
func (cm *ConnectionManager) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	client, err := cm.getClient(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	balance, err := client.BalanceAt(ctx, address, nil)
	cm.observeRPC("get_balance", start, err)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeTransientIO, "Failed to get balance", err.Error())
	}
	return balance, nil
}

// GetActivityCount returns the transaction count (nonce) of an address
func (cm *ConnectionManager) GetActivityCount(ctx context.Context, address common.Address) (uint64, error) {
	client, err := cm.getClient(ctx)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	count, err := client.NonceAt(ctx, address, nil)
	cm.observeRPC("get_activity_count", start, err)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeTransientIO, "Failed to get activity count", err.Error())
	}
	return count, nil
}

// GetFeeLevel returns the suggested gas price in wei
func (cm *ConnectionManager) GetFeeLevel(ctx context.Context) (*big.Int, error) {
	client, err := cm.getClient(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	gasPrice, err := client.SuggestGasPrice(ctx)
	cm.observeRPC("get_fee_level", start, err)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeTransientIO, "Failed to get gas price", err.Error())
	}
	return gasPrice, nil
}

// CallContract performs a read-only eth_call against a contract
func (cm *ConnectionManager) CallContract(ctx context.Context, address common.Address, data []byte) ([]byte, error) {
	client, err := cm.getClient(ctx)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{To: &address, Data: data}
	start := time.Now()
	result, err := client.CallContract(ctx, msg, nil)
	cm.observeRPC("call_contract", start, err)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeTransientIO, "Contract call failed", err.Error())
	}
	return result, nil
}

// Transact issues a state-mutating call signed by the privileged signer
func (cm *ConnectionManager) Transact(ctx context.Context, address common.Address, data []byte) (string, error) {
	if cm.signer == nil {
		return "", utils.NewAppError(utils.ErrCodeConfiguration, "No privileged signer configured", "")
	}

	client, err := cm.getClient(ctx)
	if err != nil {
		return "", err
	}

	tx, err := cm.signer.SignedTransaction(ctx, client, address, data)
	if err != nil {
		return "", err
	}

	start := time.Now()
	err = client.SendTransaction(ctx, tx)
	cm.observeRPC("send_transaction", start, err)
	if err != nil {
		return "", utils.NewAppError(utils.ErrCodeTransientIO, "Failed to send transaction", err.Error())
	}

	hash := tx.Hash().Hex()
	cm.logger.WithFields(logrus.Fields{"tx_hash": hash, "to": address.Hex()}).Info("Transaction submitted")
	return hash, nil
}

// HasSigner reports whether a privileged signer is configured
func (cm *ConnectionManager) HasSigner() bool {
	return cm.signer != nil
}

// HealthCheck verifies node connectivity and network identity
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	client, err := cm.getClient(ctx)
	if err != nil {
		return err
	}

	networkID, err := client.NetworkID(ctx)
	if err != nil {
		cm.mu.Lock()
		cm.isHealthy = false
		cm.mu.Unlock()
		return utils.NewAppError(utils.ErrCodeConnection, "Failed to get network ID", err.Error())
	}

	if networkID.Int64() != int64(cm.config.NetworkID) {
		cm.mu.Lock()
		cm.isHealthy = false
		cm.mu.Unlock()
		return utils.NewAppError(utils.ErrCodeConnection, "Network ID mismatch",
			networkID.String())
	}

	cm.mu.Lock()
	cm.isHealthy = true
	cm.lastHealthCheck = time.Now()
	cm.mu.Unlock()
	return nil
}

// IsConnected returns whether the manager holds a healthy connection
func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.client != nil && cm.isHealthy
}

// Close closes the connection
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}

	cm.isHealthy = false
	cm.logger.Info("Connection manager closed")
	return nil
}

// getAllURLs returns all available URLs starting from current index
func (cm *ConnectionManager) getAllURLs() []string {
	urls := []string{cm.primaryURL}
	urls = append(urls, cm.backupURLs...)

	// Start from current index for load balancing
	if cm.currentIndex > 0 && cm.currentIndex < len(urls) {
		rotated := make([]string, len(urls))
		copy(rotated, urls[cm.currentIndex:])
		copy(rotated[len(urls)-cm.currentIndex:], urls[:cm.currentIndex])
		return rotated
	}

	return urls
}

var _ Client = (*ConnectionManager)(nil)
