package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	cmtrpc "github.com/cometbft/cometbft/rpc/client/local"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahmadzakiakmal/internnft-chain/srvreg"
)

// WebServer exposes the game API over HTTP
type WebServer struct {
	httpAddr          string
	server            *http.Server
	logger            cmtlog.Logger
	node              *nm.Node
	nodeID            string
	startTime         time.Time
	serviceRegistry   *srvreg.ServiceRegistry
	cometBftRpcClient *cmtrpc.Local
}

// GameResponse is the envelope every game API call is answered with
type GameResponse struct {
	StatusCode int               `json:"-"`
	Headers    map[string]string `json:"-"`
	Data       interface{}       `json:"data"`
	Meta       RequestMeta       `json:"meta"`
	NodeID     string            `json:"node_id"`
}

// RequestMeta describes how a request was processed
type RequestMeta struct {
	RequestID   string    `json:"request_id"`
	Status      string    `json:"status"`
	TxHash      string    `json:"tx_hash,omitempty"`
	BlockHeight int64     `json:"block_height,omitempty"`
	ConfirmTime time.Time `json:"confirm_time,omitzero"`
}

// NewWebServer creates a new web server in front of node
func NewWebServer(httpPort string, logger cmtlog.Logger, node *nm.Node, rpcClient *cmtrpc.Local, serviceRegistry *srvreg.ServiceRegistry) *WebServer {
	mux := http.NewServeMux()

	server := &WebServer{
		httpAddr: ":" + httpPort,
		server: &http.Server{
			Addr:    ":" + httpPort,
			Handler: mux,
		},
		logger:            logger,
		node:              node,
		nodeID:            string(node.NodeInfo().ID()),
		startTime:         time.Now(),
		serviceRegistry:   serviceRegistry,
		cometBftRpcClient: rpcClient,
	}

	// Register routes
	mux.HandleFunc("/", server.handleRoot)
	mux.HandleFunc("/debug", server.handleDebug)
	mux.HandleFunc("/game/", server.handleGameAPI)
	mux.Handle("/metrics", promhttp.Handler())

	return server
}

// Start starts the web server
func (ws *WebServer) Start() error {
	ws.logger.Info("Starting web server", "addr", ws.httpAddr)
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Error("Web server error: ", "err", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the web server
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.logger.Info("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// handleRoot shows node information
func (ws *WebServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		JSONError(w, "Not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte("<h1>Intern NFT Chain</h1>"))
	w.Write([]byte("<p>Node ID: " + ws.nodeID + "</p>"))

	rpcPort := extractPortFromAddress(ws.node.Config().RPC.ListenAddress)
	rpcAddrHtml := fmt.Sprintf("<p>RPC Address: <a href=\"http://localhost:%s\">http://localhost:%s</a></p>", rpcPort, rpcPort)
	w.Write([]byte(rpcAddrHtml))

	apiDocs := `
	<h2>Game API Endpoints</h2>
	<ul>
		<li><strong>POST /game/tx</strong> - Submit a raw transaction envelope</li>
		<li><strong>POST /game/mint</strong> - Mint an intern</li>
		<li><strong>POST /game/stake</strong> - Stake an intern for gold or experience</li>
		<li><strong>POST /game/withdraw</strong> - Withdraw a staked intern and collect rewards</li>
		<li><strong>POST /game/transfer</strong> - Transfer an intern</li>
		<li><strong>GET /game/token/{id}</strong> - Get an intern's owner and traits</li>
		<li><strong>GET /game/tokens/{owner}</strong> - List an owner's interns</li>
		<li><strong>GET /game/staking/{id}</strong> - Get an intern's staking record</li>
		<li><strong>GET /game/history/{id}</strong> - Get an intern's indexed staking history</li>
		<li><strong>GET /game/indexed/{owner}</strong> - List an owner's interns from the index</li>
		<li><strong>GET /game/tx/{hash}</strong> - Get an indexed transaction</li>
		<li><strong>GET /game/status</strong> - Get deployment status</li>
		<li><strong>GET /metrics</strong> - Prometheus metrics</li>
	</ul>
	`
	w.Write([]byte(apiDocs))
}

// handleDebug provides node debugging information
func (ws *WebServer) handleDebug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	nodeStatus := "online"
	if ws.node.ConsensusReactor().WaitSync() {
		nodeStatus = "syncing"
	}
	if !ws.node.IsListening() {
		nodeStatus = "offline"
	}

	debugInfo := map[string]interface{}{
		"node_id":     ws.nodeID,
		"node_status": nodeStatus,
		"p2p_address": ws.node.Config().P2P.ListenAddress,
		"rpc_address": ws.node.Config().RPC.ListenAddress,
		"uptime":      time.Since(ws.startTime).String(),
	}

	// Get consensus info
	status, err := ws.cometBftRpcClient.Status(r.Context())
	outboundPeers, inboundPeers, dialingPeers := ws.node.Switch().NumPeers()
	debugInfo["num_peers_out"] = outboundPeers
	debugInfo["num_peers_in"] = inboundPeers
	debugInfo["num_peers_dialing"] = dialingPeers

	if err != nil {
		debugInfo["consensus_error"] = err.Error()
	} else {
		debugInfo["latest_block_height"] = status.SyncInfo.LatestBlockHeight
		debugInfo["latest_block_time"] = status.SyncInfo.LatestBlockTime
		debugInfo["catching_up"] = status.SyncInfo.CatchingUp
	}

	// Add ABCI info
	abciInfo, err := ws.cometBftRpcClient.ABCIInfo(r.Context())
	if err != nil {
		debugInfo["abci_error"] = err.Error()
	} else {
		debugInfo["last_block_height"] = abciInfo.Response.LastBlockHeight
		debugInfo["last_block_app_hash"] = fmt.Sprintf("%X", abciInfo.Response.LastBlockAppHash)
	}

	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(debugInfo); err != nil {
		JSONError(w, "Error encoding response: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// handleGameAPI dispatches game requests to the service registry
func (ws *WebServer) handleGameAPI(w http.ResponseWriter, r *http.Request) {
	request, err := srvreg.ConvertHttpRequestToConsensusRequest(r, "")
	if err != nil {
		JSONError(w, "Failed to convert request: "+err.Error(), http.StatusUnprocessableEntity)
		ws.logger.Error("Failed to convert HTTP request", "err", err)
		return
	}
	request.GenerateRequestID()

	response, err := request.GenerateResponse(ws.serviceRegistry)
	if err != nil {
		ws.logger.Error("Failed to generate response", "request_id", request.RequestID, "err", err)
		if response == nil {
			JSONError(w, "Failed to generate response: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	var responseData interface{}
	json.Unmarshal([]byte(response.Body), &responseData)

	gameResponse := GameResponse{
		StatusCode: response.StatusCode,
		Headers:    response.Headers,
		Data:       responseData,
		Meta: RequestMeta{
			RequestID: request.RequestID,
			Status:    "processed",
		},
		NodeID: ws.nodeID,
	}
	if response.StatusCode >= http.StatusBadRequest {
		gameResponse.Meta.Status = "failed"
	}

	// Commands that went through consensus carry their transaction
	if response.StatusCode == http.StatusAccepted {
		var txResult srvreg.TxResult
		if err := json.Unmarshal([]byte(response.Body), &txResult); err == nil {
			gameResponse.Meta.Status = "confirmed"
			gameResponse.Meta.TxHash = txResult.TxHash
			gameResponse.Meta.BlockHeight = txResult.BlockHeight
			gameResponse.Meta.ConfirmTime = time.Now()
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(response.StatusCode)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(gameResponse); err != nil {
		ws.logger.Error("Failed to encode response", "err", err)
	}

	ws.logger.Info("Game API Request Processed",
		"request_id", request.RequestID,
		"path", request.Path,
		"method", request.Method,
		"status", response.StatusCode,
	)
}

// Helper functions

func extractPortFromAddress(address string) string {
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == ':' {
			return address[i+1:]
		}
	}
	return ""
}

func JSONError(w http.ResponseWriter, message string, statusCode int) {
	errorResponse := struct {
		Error string `json:"error"`
	}{
		Error: message,
	}
	jsonBytes, err := json.Marshal(errorResponse)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(jsonBytes)
}
