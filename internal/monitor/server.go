// Package monitor serves a read-only JSON view of a running krakenflow
// process: pipeline counters, recent logs, host resources and the local
// order books.
package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "krakenflow/config"
	"krakenflow/internal/book"
	"krakenflow/internal/channel"
	"krakenflow/logger"
	"krakenflow/models"
)

// BookSource exposes the local order books.
type BookSource interface {
	Pairs() []models.CurrencyPair
	Book(pair models.CurrencyPair) *book.Book
}

type Server struct {
	cfg        appconfig.MonitorConfig
	log        *logger.Log
	logStore   *logStore
	counters   *counterSampler
	resources  *resourceSampler
	books      BookSource
	registry   *prometheus.Registry
	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer returns nil when the monitor is disabled. books may be nil.
func NewServer(cfg appconfig.MonitorConfig, log *logger.Log, books BookSource, ch *channel.Channels) *Server {
	if !cfg.Enabled {
		return nil
	}
	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}

	logStore := newLogStore(cfg.LogHistory)
	log.AddHook(logStore)

	return &Server{
		cfg:       cfg,
		log:       log,
		logStore:  logStore,
		counters:  newCounterSampler(cfg.CounterHistory, cfg.RefreshInterval, ch),
		resources: newResourceSampler(cfg.CounterHistory, cfg.RefreshInterval, "/", log),
		books:     books,
		registry:  newRegistry(ch),
	}
}

// Run serves until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context, appName string) error {
	if s == nil {
		return nil
	}
	defer s.cleanup()

	samplerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.counters.run(samplerCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.resources.run(samplerCtx)
	}()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.buildRouter(appName),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.WithComponent("monitor").WithFields(logger.Fields{"address": s.cfg.Address}).Info("starting monitor server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	s.logStore.close()
	s.wg.Wait()
}

func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

type levelView struct {
	Price     models.Float `json:"price"`
	Volume    models.Float `json:"volume"`
	Timestamp models.Float `json:"timestamp"`
}

type bookView struct {
	Pair     string      `json:"pair"`
	Synced   bool        `json:"synced"`
	Checksum string      `json:"checksum,omitempty"`
	Spread   string      `json:"spread,omitempty"`
	Bids     []levelView `json:"bids"`
	Asks     []levelView `json:"asks"`
}

func levels(in []book.Level) []levelView {
	out := make([]levelView, len(in))
	for i, l := range in {
		out[i] = levelView{Price: l.Price, Volume: l.Volume, Timestamp: l.Timestamp}
	}
	return out
}

func viewBook(b *book.Book, depth int) bookView {
	v := bookView{
		Pair:     b.Pair().String(),
		Synced:   b.Synced(),
		Checksum: b.Checksum(),
		Bids:     levels(b.Bids(depth)),
		Asks:     levels(b.Asks(depth)),
	}
	if spread, ok := b.Spread(); ok {
		v.Spread = spread.String()
	}
	return v
}

func (s *Server) buildRouter(appName string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "app": appName})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	router.GET("/api/counters", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"current": countersFn(), "history": s.counters.snapshot()})
	})

	router.GET("/api/logs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"logs": s.logStore.snapshot()})
	})

	router.GET("/api/resources", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"resources": s.resources.snapshot()})
	})

	router.GET("/api/books", func(c *gin.Context) {
		if s.books == nil {
			c.JSON(http.StatusOK, gin.H{"books": []bookView{}})
			return
		}
		pairs := s.books.Pairs()
		views := make([]bookView, 0, len(pairs))
		for _, p := range pairs {
			views = append(views, viewBook(s.books.Book(p), 1))
		}
		c.JSON(http.StatusOK, gin.H{"books": views})
	})

	// /api/books/XBT/USD?depth=10
	router.GET("/api/books/:crypto/:currency", func(c *gin.Context) {
		pair, err := models.ParsePair(c.Param("crypto") + "/" + c.Param("currency"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if s.books == nil || !hasPair(s.books.Pairs(), pair) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no book for " + pair.String()})
			return
		}
		depth, err := strconv.Atoi(c.DefaultQuery("depth", "10"))
		if err != nil || depth <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "depth must be a positive integer"})
			return
		}
		c.JSON(http.StatusOK, viewBook(s.books.Book(pair), depth))
	})

	return router
}

func hasPair(pairs []models.CurrencyPair, p models.CurrencyPair) bool {
	for _, q := range pairs {
		if q == p {
			return true
		}
	}
	return false
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") && len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
		return "0.0.0.0" + addr
	}

	if host, port, err := net.SplitHostPort(addr); err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil || !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}
	return addr
}
