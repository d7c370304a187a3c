package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Daethyra/Murphy/internal/agent"
	"github.com/Daethyra/Murphy/internal/assemble"
	"github.com/Daethyra/Murphy/internal/bot"
	"github.com/Daethyra/Murphy/internal/config"
	"github.com/Daethyra/Murphy/internal/history"
	"github.com/Daethyra/Murphy/internal/hub"
	"github.com/Daethyra/Murphy/internal/policy"
	"github.com/Daethyra/Murphy/internal/session"
	"github.com/Daethyra/Murphy/internal/store"
	"github.com/Daethyra/Murphy/internal/token"
	"github.com/Daethyra/Murphy/internal/tools"
	"github.com/Daethyra/Murphy/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting Murphy gateway...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Agent mode: %s", cfg.AgentMode)

	// Open the channel log
	chanLog, err := store.NewChannelLog(cfg.DatabaseURL, cfg.BotUserID, cfg.BotName)
	if err != nil {
		log.Fatalf("Failed to open channel log: %v", err)
	}
	defer chanLog.Close()

	// Initialize hub
	connectionHub := hub.NewHub()
	go connectionHub.Run()

	// Session store with optional idle eviction
	sessions := session.NewStore(cfg.SessionTTL)
	sweepDone := make(chan struct{})
	if cfg.SessionTTL > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if n := sessions.Sweep(); n > 0 {
						log.Printf("Evicted %d idle sessions", n)
					}
				case <-sweepDone:
					return
				}
			}
		}()
	}

	// Tool surface shared by both agent modes
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to compile tool policy: %v", err)
	}
	registry := tools.NewRegistry()
	registry.MustRegister(tools.HistorySearchTool, tools.NewHistorySearchExecutor(sessions))
	tools.RegisterBuiltins(registry)
	gate := tools.NewGate(registry, engine)

	// Select the agent collaborator
	var ag agent.Agent
	switch cfg.AgentMode {
	case "http":
		ag = agent.NewClient(cfg.AgentURL, cfg.AgentTimeout, gate)
	default:
		ag = agent.NewMock(gate)
	}

	// Context pipeline
	loader := history.NewLoader(chanLog, token.Estimate)
	assembler := assemble.NewAssembler(chanLog, loader, cfg.BotName, cfg.HistoryMaxTokens, cfg.HistoryMaxMessages)

	// Bot service and its delivery path
	publisher := ws.NewPublisher(connectionHub, chanLog, cfg.BotUserID, cfg.BotName)
	botService := bot.NewService(chanLog, assembler, sessions, ag, publisher, cfg.ChunkMaxLen, cfg.AgentTimeout)

	// WebSocket gateway
	wsServer := ws.NewServer(cfg, connectionHub, chanLog, botService)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.GET("/ws", wsServer.HandleWebSocket)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Gateway started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gateway...")

	close(sweepDone)
	botService.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Gateway stopped")
}
