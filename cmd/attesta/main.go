// Package main is the Attesta CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/caredocs/attesta/internal/cli"
	"github.com/caredocs/attesta/internal/config"
	"github.com/caredocs/attesta/internal/extract"
	"github.com/caredocs/attesta/internal/genai"
	"github.com/caredocs/attesta/internal/library"
	"github.com/caredocs/attesta/internal/pipeline"
	"github.com/caredocs/attesta/internal/reference"
	"github.com/caredocs/attesta/internal/refine"
	"github.com/caredocs/attesta/internal/server"
	"github.com/caredocs/attesta/internal/storage"
	"github.com/caredocs/attesta/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/attesta/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory so "attesta server" from the
// project dir uses the project's config. Returns the config and the path that
// was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "generate":
		runGenerate()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("attesta version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Attesta generates accreditation documents from legacy source material.

Usage: attesta <command> [flags]

Commands:
  server    run the HTTP API server
  generate  generate a document for an accreditation objective
  ingest    ingest legacy documents into the library
  search    search the legacy-document library
  status    show server status
  version   print version`)
}

// components holds the wired application services.
type components struct {
	Store     *storage.SQLiteStorage
	Blobs     *storage.BlobStore
	LibIndex  *library.Index
	Ingester  *library.Ingester
	Extractor *extract.Service
	Runner    *pipeline.Runner
	Refs      *reference.Loader
	Refiner   *refine.Manager
}

func (c *components) Close() {
	if c.LibIndex != nil {
		_ = c.LibIndex.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	blobs, err := storage.NewBlobStore(cfg.Storage.BlobDir, "/files")
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	libIndex, err := library.NewIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize library index: %w", err)
	}

	extractor := extract.NewService()
	client := genai.NewHTTPClient(cfg.GenAI.BaseURL, cfg.GenAI.APIKey(), cfg.GenAI.Model)

	filter := pipeline.NewFilter(client, cfg.Prompts.FilterInstruction,
		cfg.GenAI.FilterTemperature, cfg.GenAI.MaxOutputTokens)
	generator := pipeline.NewGenerator(client,
		cfg.GenAI.GenerationTemperature, cfg.GenAI.MaxOutputTokens, logger)
	policy := pipeline.Policy{
		DocumentCode:         cfg.Policy.DocumentCode,
		EffectiveOffsetDays:  cfg.Policy.EffectiveOffsetDays,
		ReviewIntervalMonths: cfg.Policy.ReviewIntervalMonths,
		Organization:         cfg.Policy.OrganizationName,
	}
	runner := pipeline.NewRunner(filter, generator, policy, logger, nil)

	refiner := refine.NewManager(store, client,
		genai.Params{Temperature: cfg.GenAI.RefineTemperature, MaxOutputTokens: cfg.GenAI.MaxOutputTokens},
		policy, logger, nil)

	return &components{
		Store:     store,
		Blobs:     blobs,
		LibIndex:  libIndex,
		Ingester:  library.NewIngester(store, libIndex, extractor, cfg.Library.Extensions, logger),
		Extractor: extractor,
		Runner:    runner,
		Refs:      reference.NewLoader(store),
		Refiner:   refiner,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode))

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	var watcher *library.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Library.Directories) > 0 {
		ingester := comps.Ingester
		watcher = library.NewWatcher(
			cfg.Library.Directories,
			cfg.Library.Extensions,
			cfg.Library.RecursiveOrDefault(),
			func(path string) {
				if _, err := ingester.IngestFile(context.Background(), path); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if err := ingester.RemoveFile(context.Background(), path); err != nil {
					logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
				}
			},
			logger,
		)
		if err := watcher.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start library watcher", zap.Error(err))
		}
		watcher.IngestExistingFiles()
	}

	srv := server.NewServer(server.Options{
		Store:      comps.Store,
		Blobs:      comps.Blobs,
		Runner:     comps.Runner,
		Refs:       comps.Refs,
		Refiner:    comps.Refiner,
		LibIndex:   comps.LibIndex,
		Ingester:   comps.Ingester,
		Watcher:    watcher,
		Extractor:  comps.Extractor,
		Config:     cfg,
		ConfigPath: resolvedConfigPath,
		Logger:     logger,
	})
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runGenerate() {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8090", "server URL")
	code := fs.String("code", "", "accreditation objective code (required)")
	title := fs.String("title", "", "objective title (required)")
	interpretation := fs.String("interpretation", "", "objective interpretation (required)")
	sections := fs.String("sections", "procedure", "comma-separated section ids")
	docTitle := fs.String("doc-title", "", "document title (defaults to objective title)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: attesta generate [flags] <source file> [<source file>...]\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	if *code == "" || *title == "" || *interpretation == "" || fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	sourcePaths := make([]string, 0, fs.NArg())
	for _, arg := range fs.Args() {
		abs, err := filepath.Abs(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid path %q: %v\n", arg, err)
			os.Exit(1)
		}
		sourcePaths = append(sourcePaths, abs)
	}

	body := map[string]interface{}{
		"objective": map[string]string{
			"code":           *code,
			"title":          *title,
			"interpretation": *interpretation,
		},
		"section_ids":  splitSections(*sections),
		"source_paths": sourcePaths,
		"title":        *docTitle,
	}
	var resp cli.GenerateResponse
	if err := postJSON(*serverURL+"/api/v1/documents/generate", body, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Generation failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteGenerateResult(os.Stdout, &resp, outputFormatOf(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: attesta ingest [flags] <path> [<path>...]\n\nPaths may be files or directories.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	ctx := context.Background()
	total := 0
	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %q: %v\n", path, err)
			continue
		}
		if info.IsDir() {
			n, err := comps.Ingester.IngestDirectory(ctx, path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Ingest of %q failed: %v\n", path, err)
				os.Exit(1)
			}
			total += n
		} else {
			if _, err := comps.Ingester.IngestFile(ctx, path); err != nil {
				fmt.Fprintf(os.Stderr, "Ingest of %q failed: %v\n", path, err)
				os.Exit(1)
			}
			total++
		}
	}
	fmt.Printf("Ingested %d documents\n", total)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8090", "server URL (empty = use local index directly)")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: attesta search [flags] <query>\n\nQuery is all remaining arguments joined by spaces.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fs.Usage()
		os.Exit(1)
	}

	var resp cli.LibrarySearchResponse
	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids a Bleve lock conflict).
		body := map[string]interface{}{"query": query, "limit": *limit}
		if err := postJSON(*serverURL+"/api/v1/library/search", body, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		comps, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer comps.Close()

		ctx := context.Background()
		hits, err := comps.LibIndex.Search(ctx, query, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		for _, hit := range hits {
			doc, err := comps.Store.GetLegacyDocument(ctx, hit.ID)
			if err != nil {
				continue
			}
			resp.Results = append(resp.Results, cli.LibraryHit{
				ID: doc.ID, Path: doc.Path, Title: doc.Title, Score: hit.Score,
			})
		}
	}
	if err := cli.WriteLibraryResults(os.Stdout, &resp, outputFormatOf(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8090", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status cli.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, &status, outputFormatOf(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func splitSections(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func outputFormatOf(s string) cli.OutputFormat {
	if s == "json" {
		return cli.OutputJSON
	}
	return cli.OutputText
}

func postJSON(url string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
