// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"heritagebackend/internal/config"
	"heritagebackend/internal/data"
	"heritagebackend/internal/form"
	"heritagebackend/internal/logger"
	"heritagebackend/internal/middleware"
)

type App struct {
	addr          string
	mux           *http.ServeMux
	connections   sync.WaitGroup
	totalRequests int64
}

func init() {
	loc, err := time.LoadLocation("America/Montreal")
	if err == nil {
		time.Local = loc // This affects the standard log package
	}
}

func main() {
	// Step 1: Setup configuration first
	config.LoadEnv()
	config.ConfigurePaths()

	// Step 2: Setup logging
	loggerConfig := config.LoggerConfig()
	if err := logger.SetupLogger(loggerConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Only NOW is logging safe to use!
	logger.LogInfo("Environment and paths loaded. Logger ready.")

	// Step 3: Load CORS and public-link settings
	config.LoadCORSConfig()
	config.LoadPublicLinkConfig()

	// Step 4: Open the quote database
	if err := data.InitDB(config.PrimaryDBPath()); err != nil {
		logger.LogFatal("Failed to open quote database: %v", err)
	}
	defer data.CloseDB()

	// Step 4b: log .env setting
	config.LogCurrentEnvironment()

	// Step 5: Setup app
	handler := form.NewHandler(
		data.NewQuoteRepository(),
		data.NewSiblingStore(config.SiblingDBPath()),
	)
	app := &App{
		addr: serverAddress(),
		mux:  routes(handler),
	}

	// Step 6: Run server
	app.Run()
}

// serverAddress builds the server address from environment variables
func serverAddress() string {
	host := os.Getenv("SERVER_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "5061"
	}
	return host + ":" + port
}

// routes sets up all API routes
func routes(h *form.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/quotes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SubmitQuoteHandler(w, r)
			return
		}
		h.GetQuoteHandler(w, r)
	})
	apiMux.HandleFunc("/catalog", h.CatalogHandler)
	apiMux.HandleFunc("/company", h.CompanyHandler)

	mux.Handle("/api/", http.StripPrefix("/api", middleware.CORS(apiMux)))

	return mux
}

// Run starts the HTTP server

func (a *App) Run() {
	server := &http.Server{
		Addr:         a.addr,
		Handler:      a.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in a separate goroutine
	go func() {
		logger.LogInfo("Starting server on %s", a.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogFatal("Server failed: %v", err)
		}
	}()

	// Wait for a shutdown signal
	<-stop
	logger.LogInfo("Shutdown signal received")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server gracefully
	if err := server.Shutdown(ctx); err != nil {
		logger.LogError("Server shutdown error: %v", err)
	}

	// Wait for active connections to finish
	logger.LogInfo("Waiting for active connections to finish...")
	a.connections.Wait()
	logger.LogInfo("All connections closed. Total requests handled: %d", atomic.LoadInt64(&a.totalRequests))
	logger.LogInfo("Server shut down gracefully")
}

// Handler assembles all middleware around the main mux
func (a *App) Handler() http.Handler {
	var handler http.Handler = a.mux

	handler = a.trackConnections(handler)
	handler = middleware.APIMiddleware(handler)
	handler = withTimeout(handler, 15*time.Second)

	return handler
}

// Middleware: timeout handler
func withTimeout(h http.Handler, timeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, timeout, "Request timed out")
}

// Middleware: track active connections and total requests
func (a *App) trackConnections(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.connections.Add(1)
		atomic.AddInt64(&a.totalRequests, 1)
		defer a.connections.Done()

		h.ServeHTTP(w, r)
	})
}
