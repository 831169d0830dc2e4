package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tradehub/internal/metrics"
	"tradehub/internal/models"
	"tradehub/internal/pnl"
	"tradehub/internal/report"
	"tradehub/internal/store"
	"tradehub/internal/trader"
	"tradehub/logger"
)

//go:embed assets/*
var embeddedFS embed.FS

// Config for the report server.
type Config struct {
	AppName       string
	Port          int
	Password      string
	Precision     int32
	MaxColors     int
	PageSize      int
	GraphDays     int
	BNBFreeFloat  float64
	MarginEnabled bool
}

// Server hosts the Gin-powered trading report pages.
type Server struct {
	cfg        Config
	log        *logger.Log
	renderer   *report.Renderer
	controller trader.Controller
	store      store.Store
	summariser *pnl.Summariser
	httpServer *http.Server
	now        func() time.Time
}

func NewServer(cfg Config, controller trader.Controller, st store.Store) *Server {
	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.GraphDays <= 0 {
		cfg.GraphDays = 7
	}

	token := ""
	if cfg.Password != "" {
		token = "pass=" + cfg.Password
	}
	renderer := report.New(report.Config{
		Title:         cfg.AppName,
		MaxColors:     cfg.MaxColors,
		Precision:     cfg.Precision,
		AuthToken:     token,
		BNBFreeFloat:  cfg.BNBFreeFloat,
		MarginEnabled: cfg.MarginEnabled,
	})

	return &Server{
		cfg:        cfg,
		log:        logger.GetLogger(),
		renderer:   renderer,
		controller: controller,
		store:      st,
		summariser: pnl.NewSummariser(st, cfg.PageSize),
		now:        time.Now,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled
// or the server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", s.cfg.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.WithComponent("web").WithFields(logger.Fields{"addr": s.httpServer.Addr}).Info("report server started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return err
	}
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	if cssFS, err := fs.Sub(embeddedFS, "assets/css"); err == nil {
		router.StaticFS("/css", http.FS(cssFS))
	}

	authed := router.Group("/", s.auth())
	authed.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, s.pageLink("/trades?"))
	})
	authed.GET("/trades", s.handleTrades)
	authed.GET("/strategies", s.handleStrategies)
	authed.GET("/virtual", s.handleVirtual)
	authed.GET("/log", s.handleLog)
	authed.GET("/trans", s.handleTransactions)
	authed.GET("/pnl", s.handlePnL)
	authed.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router, nil
}

func (s *Server) pageLink(base string) string {
	if s.cfg.Password != "" {
		return base + "pass=" + s.cfg.Password
	}
	return base
}

// auth rejects requests that do not carry the configured password. A
// missing or wrong token logs a warning and returns a generic response
// without touching any state.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Password == "" {
			return
		}
		if c.Query("pass") != s.cfg.Password {
			s.log.WithComponent("web").WithFields(logger.Fields{
				"path":   c.Request.URL.Path,
				"remote": c.ClientIP(),
			}).Warn("unauthorized request")
			c.String(http.StatusUnauthorized, "Unauthorized.")
			c.Abort()
		}
	}
}

func (s *Server) renderTable(c *gin.Context, page report.PageKind, data report.Data, current int, hasMore bool) {
	logger.IncrementPageServed(string(page))
	metrics.IncrementPageServed(string(page))
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, s.renderer.RenderTable(page, data, current, hasMore))
}

func (s *Server) handleTrades(c *gin.Context) {
	type action struct {
		param string
		run   func(id string) (string, bool)
		done  string
	}
	actions := []action{
		{"stop", func(id string) (string, bool) { return s.controller.SetTradeStopped(id, true) }, "Stopped signal handling for %s."},
		{"start", func(id string) (string, bool) { return s.controller.SetTradeStopped(id, false) }, "Resumed signal handling for %s."},
		{"hodl", func(id string) (string, bool) { return s.controller.SetTradeHODL(id, true) }, "Holding %s until a profitable close."},
		{"release", func(id string) (string, bool) { return s.controller.SetTradeHODL(id, false) }, "Released %s to normal signal handling."},
		{"close", s.controller.CloseTrade, "Closed %s."},
		{"delete", s.controller.DeleteTrade, "Deleted the %s trade without trading."},
	}
	for _, a := range actions {
		id := c.Query(a.param)
		if id == "" {
			continue
		}
		name, ok := a.run(id)
		if !ok {
			c.String(http.StatusOK, "No open trade with id %s.", id)
			return
		}
		c.String(http.StatusOK, a.done, name)
		return
	}

	trades := s.controller.Trades()
	metrics.SetTradesOpen(len(trades))
	s.renderTable(c, report.PageTrades, tradeRecords(trades), 0, false)
}

func (s *Server) handleStrategies(c *gin.Context) {
	if id := c.Query("stop"); id != "" {
		name, ok := s.controller.SetStrategyStopped(id, true)
		if !ok {
			c.String(http.StatusOK, "No strategy with id %s.", id)
			return
		}
		c.String(http.StatusOK, "Shut down trading for %s.", name)
		return
	}
	if id := c.Query("start"); id != "" {
		name, ok := s.controller.SetStrategyStopped(id, false)
		if !ok {
			c.String(http.StatusOK, "No strategy with id %s.", id)
			return
		}
		c.String(http.StatusOK, "Resumed trading for %s.", name)
		return
	}
	if _, ok := c.GetQuery("public"); ok {
		s.renderTable(c, report.PageStrategies, publicStrategyRecords(s.controller.PublicStrategies()), 0, false)
		return
	}
	s.renderTable(c, report.PageStrategies, strategyRecords(s.controller.Strategies()), 0, false)
}

func (s *Server) handleVirtual(c *gin.Context) {
	if reset := c.Query("reset"); reset != "" {
		if reset == "virtual" || reset == "true" {
			s.controller.ResetVirtualBalances()
			c.String(http.StatusOK, "Virtual balances reset to their funding levels.")
			return
		}
		amount, err := decimal.NewFromString(reset)
		if err != nil {
			c.String(http.StatusBadRequest, "Invalid reset amount %q.", reset)
			return
		}
		if err := s.controller.SetVirtualWalletFunds(amount); err != nil {
			c.String(http.StatusBadRequest, "%s", err.Error())
			return
		}
		c.String(http.StatusOK, "Virtual wallets funded with %s.", amount)
		return
	}
	s.renderTable(c, report.PageVirtual, virtualBalanceData(s.controller.VirtualBalances()), 0, false)
}

func (s *Server) handleLog(c *gin.Context) {
	page, ok := s.dbPage(c)
	if !ok {
		return
	}
	if page > 0 {
		logs, err := s.store.LogPage(c.Request.Context(), page, s.cfg.PageSize)
		if err != nil {
			c.String(http.StatusBadRequest, "%s", err.Error())
			return
		}
		s.renderTable(c, report.PageLogDB, logRecords(logs), page, len(logs) == s.cfg.PageSize)
		return
	}

	logs, err := s.store.LogPage(c.Request.Context(), 1, s.cfg.PageSize)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return
	}
	s.renderTable(c, report.PageLogMemory, logRecords(logs), 0, false)
}

func (s *Server) handleTransactions(c *gin.Context) {
	if summary := c.Query("summary"); summary != "" {
		s.handleSummary(c, summary)
		return
	}

	page, ok := s.dbPage(c)
	if !ok {
		return
	}
	if page > 0 {
		txns, err := s.store.TransactionPage(c.Request.Context(), page, s.cfg.PageSize)
		if err != nil {
			c.String(http.StatusBadRequest, "%s", err.Error())
			return
		}
		s.renderTable(c, report.PageTransDB, transactionRecords(txns), page, len(txns) == s.cfg.PageSize)
		return
	}

	txns, err := s.store.TransactionPage(c.Request.Context(), 1, s.cfg.PageSize)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return
	}
	s.renderTable(c, report.PageTransMemory, transactionRecords(txns), 0, false)
}

// handleSummary serves the hourly aggregation as JSON. The parameter is
// QUOTE:tradingType, e.g. USDT:real.
func (s *Server) handleSummary(c *gin.Context, param string) {
	quote, tradingType, ok := strings.Cut(param, ":")
	if !ok || quote == "" {
		c.String(http.StatusBadRequest, "Invalid summary request %q, expected QUOTE:tradingType.", param)
		return
	}
	quote = strings.ToUpper(quote)
	if tradingType != string(models.TradingTypeReal) && tradingType != string(models.TradingTypeVirtual) {
		c.String(http.StatusBadRequest, "Unknown trading type %q.", tradingType)
		return
	}

	summary, err := s.summariser.Summarise(c.Request.Context(), quote, models.TradingType(tradingType), s.cfg.GraphDays)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to summarise transactions: %s", err.Error())
		return
	}

	currentTrades := 0
	for _, trade := range s.controller.Trades() {
		if strings.HasSuffix(trade.Symbol, quote) && trade.TradingType == models.TradingType(tradingType) {
			currentTrades++
		}
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "currentTrades": currentTrades})
}

func (s *Server) handlePnL(c *gin.Context) {
	if reset := c.Query("reset"); reset != "" {
		asset, tradingType, _ := strings.Cut(reset, ":")
		asset = strings.ToUpper(asset)
		affected := s.store.DeleteBalanceHistory(asset, models.TradingType(tradingType))
		if len(affected) == 0 {
			c.String(http.StatusOK, "No balance history for %s.", asset)
			return
		}
		types := make([]string, 0, len(affected))
		for _, tt := range affected {
			types = append(types, string(tt))
		}
		c.String(http.StatusOK, "Deleted the %s balance history for %s.", strings.Join(types, " and "), asset)
		return
	}
	if topup := c.Query("topup"); topup != "" {
		asset, wallet, ok := strings.Cut(topup, ":")
		if !ok {
			c.String(http.StatusBadRequest, "Invalid top up request %q.", topup)
			return
		}
		result, err := s.controller.TopUpBNBFloat(models.WalletType(wallet), strings.ToUpper(asset))
		if err != nil {
			c.String(http.StatusBadRequest, "%s", err.Error())
			return
		}
		c.String(http.StatusOK, "%s", result)
		return
	}

	s.renderTable(c, report.PagePnL, s.pnlData(), 0, false)
}

// dbPage parses the optional db query parameter. The second return is
// false when the parameter was present but invalid and a response has
// already been written.
func (s *Server) dbPage(c *gin.Context) (int, bool) {
	raw := c.Query("db")
	if raw == "" {
		return 0, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		c.String(http.StatusBadRequest, "Invalid page number %q.", raw)
		return 0, false
	}
	return page, true
}

// pnlData composes the PnL page: period summaries per balance series,
// then the raw balance history the commands act on.
func (s *Server) pnlData() report.Data {
	keys := s.store.BalanceKeys()

	profit := s.groupByKey(keys, func(key store.BalanceKey) report.Data {
		return periodRecords(s.periods(s.store.BalanceHistory(key)))
	})
	history := s.groupByKey(keys, func(key store.BalanceKey) report.Data {
		return snapshotRecords(s.store.BalanceHistory(key))
	})

	return report.Group(
		report.Section{Label: "Profit and Loss", Child: profit},
		report.Section{Label: "Balance History", Child: history},
	)
}

// groupByKey nests balance series as tradingType -> asset sections.
// Keys arrive sorted from the store.
func (s *Server) groupByKey(keys []store.BalanceKey, build func(store.BalanceKey) report.Data) report.Data {
	var sections []report.Section
	var current models.TradingType
	var assets []report.Section
	flush := func() {
		if len(assets) > 0 {
			sections = append(sections, report.Section{Label: string(current), Child: report.Group(assets...)})
			assets = nil
		}
	}
	for _, key := range keys {
		if key.TradingType != current {
			flush()
			current = key.TradingType
		}
		assets = append(assets, report.Section{Label: key.Asset, Child: build(key)})
	}
	flush()
	return report.Group(sections...)
}

// periods derives the standard period rows from one balance series.
func (s *Server) periods(snapshots []models.BalanceSnapshot) []pnl.PeriodSummary {
	now := s.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	return []pnl.PeriodSummary{
		pnl.ComputePeriod("Today", since(snapshots, day), now),
		pnl.ComputePeriod("Seven Days", since(snapshots, day.AddDate(0, 0, -6)), now),
		pnl.ComputePeriod("Thirty Days", since(snapshots, day.AddDate(0, 0, -29)), now),
		pnl.ComputePeriod("180 Days", since(snapshots, day.AddDate(0, 0, -179)), now),
		pnl.ComputePeriod("Total", snapshots, now),
	}
}

func since(snapshots []models.BalanceSnapshot, cutoff time.Time) []models.BalanceSnapshot {
	for i, s := range snapshots {
		if !s.Date.Before(cutoff) {
			return snapshots[i:]
		}
	}
	return nil
}
