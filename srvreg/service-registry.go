package srvreg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	cmtrpctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/google/uuid"

	"github.com/ahmadzakiakmal/internnft-chain/app"
	"github.com/ahmadzakiakmal/internnft-chain/repository"
	"github.com/ahmadzakiakmal/internnft-chain/repository/models"
)

// DefaultConsensusTimeout bounds how long a game request waits for its
// transaction to be committed.
const DefaultConsensusTimeout = 10 * time.Second

// Request represents the client's HTTP request
type Request struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	RemoteAddr string            `json:"remote_addr"`
	RequestID  string            `json:"request_id"`
	Timestamp  time.Time         `json:"timestamp"`

	ctx context.Context
}

// Response represents the computed response from server
type Response struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	Error      string            `json:"error,omitempty"`
}

// ServiceHandler is a function type for service handlers
type ServiceHandler func(*Request) (*Response, error)

// RouteKey uniquely identifies a route
type RouteKey struct {
	Method string
	Path   string
}

// Consensus commits raw transactions to the chain
type Consensus interface {
	RunConsensus(ctx context.Context, rawTx []byte) (*repository.ConsensusResult, *repository.RepositoryError)
}

// StateQuerier answers ABCI queries against committed state
type StateQuerier interface {
	ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*cmtrpctypes.ResultABCIQuery, error)
}

// Index serves the off-chain projection of the chain
type Index interface {
	Connected() bool
	GetToken(tokenID string) (*models.Token, *repository.RepositoryError)
	GetTokensByOwner(owner string) ([]models.Token, *repository.RepositoryError)
	GetStakingHistory(tokenID string) ([]models.StakingEpisode, *repository.RepositoryError)
	GetTransactionByHash(txHash string) (*models.Transaction, *repository.RepositoryError)
}

// ContractSource resolves the deployed contract addresses
type ContractSource interface {
	Contracts() app.Contracts
}

// ServiceRegistry manages the game API handlers
type ServiceRegistry struct {
	handlers    map[RouteKey]ServiceHandler
	exactRoutes map[RouteKey]bool
	mu          sync.RWMutex

	consensus Consensus
	state     StateQuerier
	index     Index
	contracts ContractSource
	timeout   time.Duration
	logger    cmtlog.Logger
}

var defaultHeaders = map[string]string{"Content-Type": "application/json"}

// NewServiceRegistry creates a new service registry
func NewServiceRegistry(consensus Consensus, state StateQuerier, index Index, contracts ContractSource, logger cmtlog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		handlers:    make(map[RouteKey]ServiceHandler),
		exactRoutes: make(map[RouteKey]bool),
		consensus:   consensus,
		state:       state,
		index:       index,
		contracts:   contracts,
		timeout:     DefaultConsensusTimeout,
		logger:      logger,
	}
}

// GenerateRequestID assigns the request a fresh random ID
func (r *Request) GenerateRequestID() {
	r.RequestID = uuid.NewString()
}

// Context returns the context of the originating HTTP request
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// RegisterHandler registers a new service handler
func (sr *ServiceRegistry) RegisterHandler(method, path string, isExactPath bool, handler ServiceHandler) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	key := RouteKey{Method: strings.ToUpper(method), Path: path}
	sr.handlers[key] = handler
	sr.exactRoutes[key] = isExactPath
}

// GetHandlerForPath finds the appropriate handler for a given path
func (sr *ServiceRegistry) GetHandlerForPath(method, path string) (ServiceHandler, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	// Try exact match first
	key := RouteKey{Method: strings.ToUpper(method), Path: path}
	if handler, ok := sr.handlers[key]; ok {
		if sr.exactRoutes[key] {
			return handler, true
		}
	}

	// Try pattern matching
	for routeKey, handler := range sr.handlers {
		if routeKey.Method != strings.ToUpper(method) {
			continue
		}

		if sr.exactRoutes[routeKey] {
			continue
		}

		if matchPath(routeKey.Path, path) {
			return handler, true
		}
	}

	return nil, false
}

// matchPath does simple pattern matching for routes
func matchPath(pattern, path string) bool {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	if len(patternParts) != len(pathParts) {
		return false
	}

	for i := range len(patternParts) {
		if strings.HasPrefix(patternParts[i], ":") {
			if pathParts[i] == "" {
				return false
			}
			continue
		}
		if patternParts[i] != pathParts[i] {
			return false
		}
	}

	return true
}

// RegisterDefaultServices sets up the game API
func (sr *ServiceRegistry) RegisterDefaultServices() {
	// Commands, each committed through consensus
	sr.RegisterHandler("POST", "/game/tx", true, sr.SubmitTxHandler)
	sr.RegisterHandler("POST", "/game/mint", true, sr.MintHandler)
	sr.RegisterHandler("POST", "/game/stake", true, sr.StakeHandler)
	sr.RegisterHandler("POST", "/game/withdraw", true, sr.WithdrawHandler)
	sr.RegisterHandler("POST", "/game/transfer", true, sr.TransferHandler)

	// Ledger state
	sr.RegisterHandler("GET", "/game/token/:id", false, sr.GetTokenHandler)
	sr.RegisterHandler("GET", "/game/tokens/:owner", false, sr.GetTokensHandler)
	sr.RegisterHandler("GET", "/game/staking/:id", false, sr.GetStakingHandler)

	// Off-chain index
	sr.RegisterHandler("GET", "/game/history/:id", false, sr.GetHistoryHandler)
	sr.RegisterHandler("GET", "/game/indexed/:owner", false, sr.GetIndexedTokensHandler)
	sr.RegisterHandler("GET", "/game/tx/:hash", false, sr.GetTransactionHandler)

	sr.RegisterHandler("GET", "/game/status", true, sr.StatusHandler)
}

// ConvertHttpRequestToConsensusRequest converts an http.Request to Request
func ConvertHttpRequestToConsensusRequest(r *http.Request, requestID string) (*Request, error) {
	headers := make(map[string]string)
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	body := ""
	if r.Body != nil {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		raw := strings.TrimSpace(string(bodyBytes))
		body = compactJSON(raw)
	}

	return &Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Headers:    headers,
		Body:       body,
		RemoteAddr: r.RemoteAddr,
		RequestID:  requestID,
		Timestamp:  time.Now(),
		ctx:        r.Context(),
	}, nil
}

// GenerateResponse executes the request and generates a response
func (req *Request) GenerateResponse(services *ServiceRegistry) (*Response, error) {
	handler, found := services.GetHandlerForPath(req.Method, req.Path)
	if !found {
		return errorResponse(http.StatusNotFound, fmt.Sprintf("Service not found for %s %s", req.Method, req.Path)), nil
	}

	response, err := handler(req)
	return response, err
}

func jsonResponse(statusCode int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Failed to serialize response"), err
	}
	return &Response{
		StatusCode: statusCode,
		Headers:    defaultHeaders,
		Body:       string(body),
	}, nil
}

func errorResponse(statusCode int, message string) *Response {
	body, _ := json.Marshal(map[string]string{"error": message})
	return &Response{
		StatusCode: statusCode,
		Headers:    defaultHeaders,
		Body:       string(body),
		Error:      message,
	}
}

func compactJSON(body string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(body)); err != nil {
		return strings.TrimSpace(body)
	}
	return buf.String()
}
