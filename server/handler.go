package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/docstore"
	"github.com/m-mizutani/pandora/market"
	"github.com/m-mizutani/pandora/trace"
	"github.com/sourcegraph/conc/pool"
)

type apiError struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, apiError{Error: msg})
}

func (s *Server) ctx(c *gin.Context) context.Context {
	return pandora.CtxWithLogger(c.Request.Context(), s.logger)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type chatRequest struct {
	Query  string `json:"query"`
	Ticker string `json:"ticker"`
}

type chatResponse struct {
	Answer string         `json:"answer"`
	Steps  []pandora.Step `json:"steps"`
	// Sources stays empty; answers cite their filings inline.
	Sources []string `json:"sources"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(c, http.StatusBadRequest, "query is required")
		return
	}

	s.logger.Info("chat query", "query", req.Query, "ticker", req.Ticker)

	var opts []pandora.RunOption
	if ticker := strings.TrimSpace(req.Ticker); ticker != "" {
		opts = append(opts, pandora.WithContextHint(strings.ToUpper(ticker)))
	}

	result, err := s.agent.Run(s.ctx(c), req.Query, opts...)
	if err != nil {
		if errors.Is(err, pandora.ErrEmptyQuery) {
			writeError(c, http.StatusBadRequest, "query is required")
			return
		}
		s.logger.Error("agent run failed", "error", err)
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Answer:  result.Answer,
		Steps:   result.Trace,
		Sources: []string{},
	})
}

type stockResponse struct {
	Quote   *market.Quote `json:"quote"`
	History []*market.Bar `json:"history"`
}

func (s *Server) handleStock(c *gin.Context) {
	if s.stocks == nil {
		writeError(c, http.StatusNotFound, "market data is not configured")
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	since := s.now().Add(-s.historyWindow)

	var resp stockResponse
	p := pool.New().WithContext(s.ctx(c)).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		quote, err := s.stocks.Quote(ctx, ticker)
		resp.Quote = quote
		return err
	})
	p.Go(func(ctx context.Context) error {
		history, err := s.stocks.History(ctx, ticker, since)
		resp.History = history
		return err
	})

	if err := p.Wait(); err != nil {
		if errors.Is(err, market.ErrTickerNotFound) {
			writeError(c, http.StatusNotFound, "ticker not found: "+ticker)
			return
		}
		s.logger.Error("failed to get stock data", "ticker", ticker, "error", err)
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if resp.History == nil {
		resp.History = []*market.Bar{}
	}
	c.JSON(http.StatusOK, resp)
}

type filesResponse struct {
	Files   []*docstore.ProcessedFile `json:"files"`
	Tickers []string                  `json:"tickers"`
}

func (s *Server) handleFiles(c *gin.Context) {
	if s.files == nil {
		writeError(c, http.StatusNotFound, "document store is not configured")
		return
	}

	files, err := s.files.ListFiles(s.ctx(c), DefaultFileLimit)
	if err != nil {
		s.logger.Error("failed to list files", "error", err)
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := filesResponse{Files: files, Tickers: []string{}}
	if resp.Files == nil {
		resp.Files = []*docstore.ProcessedFile{}
	}
	seen := map[string]bool{}
	for _, f := range files {
		if !seen[f.Ticker] {
			seen[f.Ticker] = true
			resp.Tickers = append(resp.Tickers, f.Ticker)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListTraces(c *gin.Context) {
	if s.traces == nil {
		writeError(c, http.StatusNotFound, "trace recording is not configured")
		return
	}

	limit := defaultTraceLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}

	summaries, err := s.traces.List(s.ctx(c), limit)
	if err != nil {
		s.logger.Error("failed to list traces", "error", err)
		writeError(c, http.StatusInternalServerError, "failed to list traces")
		return
	}
	if summaries == nil {
		summaries = []trace.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"traces": summaries})
}

func (s *Server) handleGetTrace(c *gin.Context) {
	if s.traces == nil {
		writeError(c, http.StatusNotFound, "trace recording is not configured")
		return
	}

	t, err := s.traces.Load(s.ctx(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, trace.ErrTraceNotFound) {
			writeError(c, http.StatusNotFound, "trace not found")
			return
		}
		s.logger.Error("failed to load trace", "error", err, "trace_id", c.Param("id"))
		writeError(c, http.StatusInternalServerError, "failed to load trace")
		return
	}
	c.JSON(http.StatusOK, t)
}
