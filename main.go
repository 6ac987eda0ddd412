package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/ot-clark/llm-rank-diagnostic/analyzer"
	"github.com/ot-clark/llm-rank-diagnostic/config"
	"github.com/ot-clark/llm-rank-diagnostic/crawler"
	"github.com/ot-clark/llm-rank-diagnostic/fetch"
	"github.com/ot-clark/llm-rank-diagnostic/history"
	"github.com/ot-clark/llm-rank-diagnostic/llm"
	"github.com/ot-clark/llm-rank-diagnostic/logging"
	"github.com/ot-clark/llm-rank-diagnostic/server"
)

func loadEnv() {
	// Try to load .env.development first (for local development)
	if err := godotenv.Load(".env.development"); err != nil {
		// If .env.development doesn't exist, try regular .env
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}
}

func setupGinMode() {
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
}

func newLogger(quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// newAnalyzer builds the scoring facade from configuration. The remote
// grading client is only attached when an API key is configured.
func newAnalyzer(cfg *config.Config, logger *slog.Logger) (*analyzer.Analyzer, error) {
	opts := []analyzer.Option{
		analyzer.WithLogger(logger),
		analyzer.WithFetchTimeout(cfg.FetchTimeout()),
	}
	if cfg.LLM.APIKey != "" {
		opts = append(opts, analyzer.WithLLMClient(llm.NewHTTPClient(cfg.LLMClientConfig())))
	}

	an, err := analyzer.New(cfg.DataDir, opts...)
	if err != nil {
		return nil, err
	}
	an.SetCacheTTL(cfg.CacheTTL())
	return an, nil
}

func newCrawler(cfg *config.Config, an *analyzer.Analyzer, logger *slog.Logger) *crawler.Crawler {
	return crawler.New(
		fetch.NewFetcher(cfg.FetchTimeout(), fetch.DefaultUserAgent),
		an,
		crawler.WithMaxPages(cfg.Crawl.MaxPages),
		crawler.WithDelay(cfg.CrawlDelay()),
		crawler.WithLogger(logger),
		crawler.WithPageHook(an.GetStats().RecordCrawledPage),
	)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c.Bool("quiet"))
	setupGinMode()

	an, err := newAnalyzer(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize analyzer: %w", err)
	}
	defer an.Shutdown()

	hist, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer hist.Close()

	usage := logging.Initialize(cfg.DataDir)
	cr := newCrawler(cfg, an, logger)

	srv := server.New(cfg, an, cr, hist, usage, logger)
	return srv.Run()
}

func analyzeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: analyze <url>", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c.Bool("quiet"))

	an, err := newAnalyzer(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize analyzer: %w", err)
	}
	defer an.Shutdown()

	report := an.Analyze(c.Args().First())

	if cfg.HistoryPath != "" {
		if hist, err := history.Open(cfg.HistoryPath); err == nil {
			if err := hist.InsertReport(report); err != nil {
				logger.Error("failed to store run", "error", err)
			}
			hist.Close()
		}
	}

	return printJSON(report)
}

func crawlAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: crawl <url>", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("max-pages") {
		cfg.Crawl.MaxPages = c.Int("max-pages")
	}
	logger := newLogger(c.Bool("quiet"))

	an, err := newAnalyzer(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize analyzer: %w", err)
	}
	defer an.Shutdown()

	cr := newCrawler(cfg, an, logger)
	reports, err := cr.Crawl(context.Background(), c.Args().First())
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	if cfg.HistoryPath != "" {
		if hist, err := history.Open(cfg.HistoryPath); err == nil {
			for _, report := range reports {
				if err := hist.InsertReport(report); err != nil {
					logger.Error("failed to store run", "error", err)
				}
			}
			hist.Close()
		}
	}

	return printJSON(reports)
}

func historyAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	hist, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer hist.Close()

	var runs []history.Run
	if target := c.String("url"); target != "" {
		runs, err = hist.ForURL(target, c.Int("limit"))
	} else {
		runs, err = hist.Recent(c.Int("limit"))
	}
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	return printJSON(runs)
}

func main() {
	loadEnv()

	app := &cli.App{
		Name:  "llm-rank-diagnostic",
		Usage: "Score web pages for LLM visibility",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to YAML config file",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Only log errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveAction,
			},
			{
				Name:      "analyze",
				Usage:     "Analyze one page and print the report as JSON",
				ArgsUsage: "<url>",
				Action:    analyzeAction,
			},
			{
				Name:      "crawl",
				Usage:     "Discover and analyze pages of a site",
				ArgsUsage: "<url>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "Maximum number of pages to analyze",
					},
				},
				Action: crawlAction,
			},
			{
				Name:  "history",
				Usage: "Print recent analysis runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "Only show runs for this URL",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: 20,
					},
				},
				Action: historyAction,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
