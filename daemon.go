package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"ghosttab/buffer"
	"ghosttab/cache"
	"ghosttab/client/model"
	"ghosttab/engine"
	"ghosttab/history"
	"ghosttab/logger"
	"ghosttab/types"
)

// completeRequest is one line of the socket protocol.
type completeRequest struct {
	Type     string `json:"type"` // "complete", "change", "accept", "close"
	URI      string `json:"uri"`
	Language string `json:"language"`

	// complete
	Line               int    `json:"line"`
	Character          int    `json:"character"`
	Prefix             string `json:"prefix"`
	Suffix             string `json:"suffix"`
	Trigger            string `json:"trigger"` // "invoke" or "automatic"
	SelectedCompletion string `json:"selected_completion,omitempty"`

	// change: the full document text after the edit. The daemon keeps the
	// previous snapshot, so clients never compute diffs.
	Text string `json:"text"`
}

type completeResponse struct {
	Items []completionItem `json:"items"`
}

type completionItem struct {
	InsertText string    `json:"insert_text"`
	Range      itemRange `json:"range"`
}

type itemRange struct {
	StartLine      int `json:"start_line"`
	StartCharacter int `json:"start_character"`
	EndLine        int `json:"end_line"`
	EndCharacter   int `json:"end_character"`
}

type Daemon struct {
	config      Config
	engine      *engine.Engine
	cache       *cache.Cache
	history     *history.Tracker
	buffers     *buffer.Store
	listener    net.Listener
	socketPath  string
	pidPath     string
	clientCount int64
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewDaemon(config Config) *Daemon {
	client := model.NewClient(config.ProviderURL, config.APIKey, config.RequestTimeoutMs)
	completionCache := cache.New(config.CacheCapacity, msDuration(config.CacheTTLMs))
	tracker := history.NewTracker(msDuration(config.HistoryWindowMs))
	eng := engine.New(client, completionCache, tracker, config.engineConfig())

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		config:     config,
		engine:     eng,
		cache:      completionCache,
		history:    tracker,
		buffers:    buffer.NewStore(),
		socketPath: getSocketPath(),
		pidPath:    getPidPath(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (d *Daemon) Start() error {
	d.writePidFile()
	defer d.removePidFile()

	if err := d.setupSocket(); err != nil {
		return err
	}
	defer d.cleanup()

	logger.Info("daemon listening on socket: %s", d.socketPath)

	d.setupShutdownHandling()
	go d.acceptConnections()
	go d.monitorIdleShutdown()

	<-d.ctx.Done()
	logger.Info("daemon shutting down...")
	return nil
}

func (d *Daemon) setupSocket() error {
	os.Remove(d.socketPath)
	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return err
	}
	d.listener = listener
	return nil
}

func (d *Daemon) setupShutdownHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		d.Stop()
	}()
}

func (d *Daemon) acceptConnections() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.ctx.Done():
				return
			default:
				logger.Error("error accepting connection: %v", err)
				continue
			}
		}

		atomic.AddInt64(&d.clientCount, 1)
		logger.Info("new client connected, total clients: %d", atomic.LoadInt64(&d.clientCount))
		go d.handleConnection(conn)
	}
}

// handleConnection serves newline-delimited JSON requests until the client
// disconnects.
func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer func() {
		atomic.AddInt64(&d.clientCount, -1)
		logger.Info("client disconnected, remaining clients: %d", atomic.LoadInt64(&d.clientCount))
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		var req completeRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			logger.Warn("malformed request: %v", err)
			continue
		}

		if resp := d.handleMessage(&req); resp != nil {
			if err := encoder.Encode(resp); err != nil {
				logger.Error("error writing response: %v", err)
				return
			}
		}
	}
}

// handleMessage dispatches one protocol message. Only "complete" yields a
// response; the notification types return nil.
func (d *Daemon) handleMessage(req *completeRequest) *completeResponse {
	switch req.Type {
	case "change":
		if previous, ok := d.buffers.Update(req.URI, req.Text); ok {
			d.history.RecordChange(req.URI, previous, req.Text)
			logger.Debug("change in %s, %d edits in window", req.URI,
				d.history.EditsWithin(req.URI, msDuration(d.config.HistoryWindowMs)))
		}
	case "accept":
		d.history.RecordAcceptance(req.URI)
	case "close":
		d.buffers.Forget(req.URI)
		logger.Debug("closed %s, %d buffers tracked", req.URI, d.buffers.Len())
	case "complete":
		return d.handleComplete(req)
	default:
		logger.Warn("unknown request type %q", req.Type)
	}
	return nil
}

func (d *Daemon) handleComplete(req *completeRequest) *completeResponse {
	prefix, suffix := req.Prefix, req.Suffix
	if prefix == "" && suffix == "" {
		// The client may omit the context and rely on its change snapshots.
		if p, s, ok := d.buffers.SplitAt(req.URI, req.Line, req.Character); ok {
			prefix, suffix = p, s
		}
	}

	doc := &engine.StringDocument{
		DocURI:     req.URI,
		Language:   req.Language,
		PrefixText: prefix,
		SuffixText: suffix,
	}
	pos := types.Position{Line: req.Line, Character: req.Character}

	icc := types.InlineCompletionContext{TriggerKind: types.TriggerAutomatic}
	if req.Trigger == "invoke" {
		icc.TriggerKind = types.TriggerInvoke
	}
	if req.SelectedCompletion != "" {
		icc.SelectedCompletionInfo = &types.SelectedCompletionInfo{Text: req.SelectedCompletion}
	}

	items, err := d.engine.ProvideInlineCompletionItems(d.ctx, doc, pos, icc)
	if err != nil {
		// The engine only surfaces precondition violations; log and return
		// nothing rather than failing the connection.
		logger.Error("completion error: %v", err)
	}

	resp := &completeResponse{Items: make([]completionItem, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, completionItem{
			InsertText: item.InsertText,
			Range: itemRange{
				StartLine:      item.Range.Start.Line,
				StartCharacter: item.Range.Start.Character,
				EndLine:        item.Range.End.Line,
				EndCharacter:   item.Range.End.Character,
			},
		})
	}
	return resp
}

func (d *Daemon) monitorIdleShutdown() {
	// In debug mode, shut down as soon as no clients are connected.
	interval := 30 * time.Second
	if d.config.DebugImmediateShutdown {
		interval = 1 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt64(&d.clientCount) == 0 {
				logger.Info("no clients connected, shutting down daemon")
				d.Stop()
				return
			}
		}
	}
}

func (d *Daemon) Stop() {
	d.engine.Close()
	d.cache.Close()
	d.history.Close()
	if d.listener != nil {
		d.listener.Close()
	}
	d.cancel()
}

func (d *Daemon) cleanup() {
	os.Remove(d.socketPath)
}

func (d *Daemon) writePidFile() {
	pid := os.Getpid()
	if err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(pid)), 0644); err != nil {
		logger.Warn("could not write PID file: %v", err)
	}
	logger.Info("daemon started with PID %d", pid)
}

func (d *Daemon) removePidFile() {
	if err := os.Remove(d.pidPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not remove PID file: %v", err)
	}
}
