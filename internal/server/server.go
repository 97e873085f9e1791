// Package server exposes saved backtest reports over a small JSON API.
// There is no HTML surface; rendering is left to external consumers.
package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"rankback/internal/config"
	"rankback/internal/logging"

	"github.com/gin-gonic/gin"
)

// Server represents the report API server
type Server struct {
	cfg    *config.Config
	logger *logging.Logger
	router *gin.Engine
}

// NewServer creates a new report API server
func NewServer(cfg *config.Config) *Server {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		logger: logging.NewComponentLogger("server"),
		router: gin.New(),
	}
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/results", s.handleListResults)
		api.GET("/results/:name", s.handleGetResult)
	}
}

// Run serves the API until the listener fails
func (s *Server) Run() error {
	s.logger.Infof("Report API listening on %s", s.cfg.Server.Addr)
	return s.router.Run(s.cfg.Server.Addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}

// resultEntry describes one saved report file
type resultEntry struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

func (s *Server) handleListResults(c *gin.Context) {
	entries, err := os.ReadDir(s.cfg.Backtest.ResultsDirectory)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "results directory unavailable"})
		return
	}

	results := make([]resultEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		results = append(results, resultEntry{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleGetResult(c *gin.Context) {
	name := c.Param("name")

	// Report names are flat files; reject anything that could escape the
	// results directory
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".json") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid result name"})
		return
	}

	path := filepath.Join(s.cfg.Backtest.ResultsDirectory, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}

	c.File(path)
}
