package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"gopkg.in/yaml.v3"

	"github.com/codebuildervaibhav/media-relay/internal/cleanup"
	"github.com/codebuildervaibhav/media-relay/internal/convert"
	"github.com/codebuildervaibhav/media-relay/internal/handlers"
	"github.com/codebuildervaibhav/media-relay/internal/pipeline"
	"github.com/codebuildervaibhav/media-relay/internal/registry"
	"github.com/codebuildervaibhav/media-relay/internal/resolver"
	"github.com/codebuildervaibhav/media-relay/internal/source"
	"github.com/codebuildervaibhav/media-relay/internal/storage"
	"github.com/codebuildervaibhav/media-relay/internal/types"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	YouTube struct {
		APIKey          string   `yaml:"api_key"`
		Languages       []string `yaml:"languages"`
		DefaultLanguage string   `yaml:"default_language"`
	} `yaml:"youtube"`

	Tools struct {
		YtDlpPath  string `yaml:"ytdlp_path"`
		FFmpegPath string `yaml:"ffmpeg_path"`
	} `yaml:"tools"`

	Convert struct {
		Format  string `yaml:"format"`
		Bitrate string `yaml:"bitrate"`
	} `yaml:"convert"`

	Storage struct {
		StagingDir string `yaml:"staging_dir"`
		PublicDir  string `yaml:"public_dir"`
		Database   string `yaml:"database"`
	} `yaml:"storage"`

	Timeouts struct {
		DownloadMinutes int `yaml:"download_minutes"`
		ConvertMinutes  int `yaml:"convert_minutes"`
		SyncWaitMinutes int `yaml:"sync_wait_minutes"`
	} `yaml:"timeouts"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`
}

func main() {
	// Load configuration
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	// Initialize components
	log.Println("Initializing components...")

	// Artifact directories
	layout, err := storage.NewLayout(config.Storage.StagingDir, config.Storage.PublicDir, config.Convert.Format)
	if err != nil {
		log.Fatalf("Failed to prepare storage layout: %v", err)
	}

	// Query resolver
	queryResolver, err := resolver.New(
		context.Background(),
		config.YouTube.APIKey,
		config.YouTube.Languages,
		config.YouTube.DefaultLanguage,
	)
	if err != nil {
		log.Fatalf("Failed to initialize resolver: %v", err)
	}

	// External tools
	extractor := source.NewYtDlpExtractor(config.Tools.YtDlpPath)
	converter := convert.NewFFmpegConverter(config.Tools.FFmpegPath)

	// Conversion history database
	if err := os.MkdirAll(filepath.Dir(config.Storage.Database), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	history, err := storage.NewHistoryDB(config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer history.Close()

	// Job registry with websocket event fan-out
	eventHub := handlers.NewEventHub()
	jobRegistry := registry.New(eventHub.Broadcast)

	// Fetch-transcode pipeline
	profile := types.Profile{Format: config.Convert.Format, Bitrate: config.Convert.Bitrate}
	jobPipeline := pipeline.New(
		jobRegistry,
		extractor,
		converter,
		layout,
		history,
		profile,
		time.Duration(config.Timeouts.DownloadMinutes)*time.Minute,
		time.Duration(config.Timeouts.ConvertMinutes)*time.Minute,
	)

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		layout.StagingDir(),
		config.Cleanup.IntervalMinutes,
		config.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	syncWait := time.Duration(config.Timeouts.SyncWaitMinutes) * time.Minute
	searchHandler := handlers.NewSearchHandler(queryResolver, extractor, jobRegistry, jobPipeline, syncWait)
	assistantHandler := handlers.NewAssistantHandler(queryResolver, jobRegistry, jobPipeline, layout)
	jobsHandler := handlers.NewJobsHandler(jobRegistry, history)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Get("/search/:query", searchHandler.HandleSearch)
	app.Get("/target/:id", searchHandler.HandleTarget)
	app.Get("/assistant-search/:query", assistantHandler.HandleSearch)
	app.Get("/assistant-check/:id", assistantHandler.HandleCheck)

	app.Get("/jobs", jobsHandler.HandleList)
	app.Get("/jobs/:id", jobsHandler.HandleGet)
	app.Post("/jobs/:id/retry", jobsHandler.HandleRetry)

	// WebSocket route for live job events
	app.Get("/ws/jobs", websocket.New(eventHub.Handle))

	// Converted artifacts
	app.Static("/site", layout.PublicDir())

	// Conversion history
	app.Get("/conversions", func(c *fiber.Ctx) error {
		limit := 50 // Default limit
		conversions, err := history.ListConversions(limit)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(conversions)
	})

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   GET  /search/:query          - Resolve and convert, wait for artifact")
	log.Println("   GET  /target/:id             - Convert a known id, wait for artifact")
	log.Println("   GET  /assistant-search/:query - Resolve (base64) and convert in background")
	log.Println("   GET  /assistant-check/:id    - Poll conversion status")
	log.Println("   GET  /jobs                   - List jobs")
	log.Println("   POST /jobs/:id/retry         - Clear a failed job")
	log.Println("   GET  /ws/jobs                - Live job events")
	log.Println("   GET  /conversions            - Conversion history")
	log.Println("   GET  /logs                   - View server logs")
	log.Println("   GET  /health                 - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
