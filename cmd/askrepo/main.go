// askrepo analyzes GitHub repositories and answers questions about them,
// over a web UI, a CLI, or MCP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/askrepo/askrepo/internal/analysis"
	"github.com/askrepo/askrepo/internal/config"
	"github.com/askrepo/askrepo/internal/github"
	"github.com/askrepo/askrepo/internal/history"
	"github.com/askrepo/askrepo/internal/mcp"
	"github.com/askrepo/askrepo/internal/repo"
	"github.com/askrepo/askrepo/internal/search"
	"github.com/askrepo/askrepo/internal/server"
)

var (
	version   = "0.1.0"
	logLevel  string
	logFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "askrepo",
	Short: "Analyze GitHub repositories and answer questions about them",
	Long: `askrepo clones a GitHub repository (or opens a local checkout), computes
file and language statistics, fetches issues and pull requests, and
answers free-text questions about the codebase.

It serves a web chat UI, works as a one-shot CLI, and speaks MCP over
stdio for editor integration.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("askrepo %s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		mode, _ := cmd.Flags().GetString("mode")
		preload, _ := cmd.Flags().GetString("preload")
		watch, _ := cmd.Flags().GetBool("watch")
		runServe(port, mode, preload, watch)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Run: func(cmd *cobra.Command, args []string) {
		runMCP()
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url-or-path>",
	Short: "Analyze a repository and print its statistics",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		runAnalyze(args[0], asJSON)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <url-or-path> <question>",
	Short: "Ask a single question about a repository",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runAsk(args[0], args[1])
	},
}

var issuesCmd = &cobra.Command{
	Use:   "issues <url>",
	Short: "List open issues for a GitHub repository",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		runIssues(args[0], limit)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.Save(".", config.DefaultConfig()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", config.ConfigPath("."))
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, warnings, err := config.Load(".")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, w := range warnings {
			fmt.Println("warning:", w)
		}
		errs := config.Validate(cfg)
		if len(errs) == 0 {
			fmt.Println("Config is valid.")
			return
		}
		for _, e := range errs {
			fmt.Println("error:", e)
		}
		os.Exit(1)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	serveCmd.Flags().IntP("port", "p", 0, "listen port (default from config)")
	serveCmd.Flags().StringP("mode", "m", "", "analysis mode (fast, full)")
	serveCmd.Flags().String("preload", "", "repository URL or path to load at startup")
	serveCmd.Flags().Bool("watch", false, "re-analyze the checkout when files change")

	analyzeCmd.Flags().Bool("json", false, "output as JSON")

	issuesCmd.Flags().IntP("limit", "l", 0, "maximum issues to show (default from config)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadConfig loads config relative to the working directory and logs
// warnings.
func loadConfig() *config.Config {
	cfg, warnings, err := config.Load(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Debug(w)
	}
	return cfg
}

// buildSession wires a session from config. History and the semantic
// engine are optional and failures there only degrade functionality.
func buildSession(cfg *config.Config) (*repo.Session, *history.Store) {
	gh, err := github.NewClient(cfg.GitHub)
	if err != nil {
		slog.Warn("github client unavailable", "error", err)
	}

	var engine *search.Engine
	if cfg.SemanticEnabled() {
		store, serr := search.OpenVectorStore(config.IndexDBPath("."))
		if serr != nil {
			slog.Warn("semantic index unavailable, keyword search only", "error", serr)
		} else {
			embedder := search.NewOpenAIEmbedder(cfg.Embedding.Endpoint, cfg.Embedding.APIKey, cfg.Embedding.Model)
			engine = search.NewEngine(cfg.Search, cfg.Analysis.TextExts, embedder, store)
		}
	}
	if engine == nil {
		engine = search.NewEngine(cfg.Search, cfg.Analysis.TextExts, nil, nil)
	}

	var hist *history.Store
	if cfg.History.Enabled {
		path := cfg.History.Path
		if path == "" {
			path = config.HistoryDBPath(".")
		}
		hist, err = history.Open(path)
		if err != nil {
			slog.Warn("chat history unavailable", "error", err)
			hist = nil
		}
	}

	session := repo.NewSession(repo.Options{
		Config:  cfg,
		GitHub:  gh,
		Engine:  engine,
		History: hist,
	})
	return session, hist
}

func runServe(port int, mode, preload string, watch bool) {
	cfg := loadConfig()
	if port > 0 {
		cfg.Server.Port = port
	}
	if mode != "" {
		cfg.Server.Mode = mode
	}

	session, hist := buildSession(cfg)
	defer session.Close()
	if hist != nil {
		defer hist.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if gh := session.GitHub(); gh != nil && gh.Authenticated() {
		info := gh.TokenInfo(ctx)
		if info.Valid {
			slog.Info("github token valid", "user", info.Username, "remaining", info.Remaining)
		} else {
			slog.Warn("github token rejected, continuing unauthenticated")
		}
	}

	if preload != "" {
		if _, err := session.Load(ctx, preload); err != nil {
			slog.Error("preload failed", "source", preload, "error", err)
			os.Exit(1)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.New(cfg, session, hist).Start(ctx)
	})

	if watch {
		watcher, err := repo.NewWatcher(session, 500*time.Millisecond)
		if err != nil {
			slog.Warn("watcher unavailable", "error", err)
		} else {
			g.Go(func() error {
				return watcher.Watch(ctx)
			})
		}
	}

	if err := g.Wait(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func runMCP() {
	cfg := loadConfig()
	session, hist := buildSession(cfg)
	defer session.Close()
	if hist != nil {
		defer hist.Close()
	}

	if err := mcp.New(session, version).ServeStdio(); err != nil {
		slog.Error("mcp server failed", "error", err)
		os.Exit(1)
	}
}

func runAnalyze(source string, asJSON bool) {
	cfg := loadConfig()
	session, hist := buildSession(cfg)
	defer session.Close()
	if hist != nil {
		defer hist.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := session.Load(ctx, source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if asJSON {
		data, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Files:        %d\n", summary.TotalFiles)
	fmt.Printf("Size:         %.2f MB\n", summary.SizeMB())
	fmt.Printf("Lines:        %d (%d code, %d comments, %d blank)\n",
		summary.TotalLines, summary.CodeLines, summary.CommentLines, summary.BlankLines)
	fmt.Printf("Comment rate: %.1f%%\n", summary.CommentRatio()*100)

	if langs := summary.LanguageList(); len(langs) > 0 {
		fmt.Println("Languages:")
		for _, lang := range langs {
			fmt.Printf("  %-20s %d files\n", lang, summary.Languages[lang])
		}
	}
	if len(summary.KeyFiles) > 0 {
		fmt.Println("Key files:")
		for _, f := range summary.KeyFiles {
			fmt.Printf("  %s\n", f)
		}
	}
	if len(summary.LargestFiles) > 0 {
		fmt.Println("Largest files:")
		for _, f := range summary.LargestFiles {
			fmt.Printf("  %-50s %d bytes\n", f.Path, f.Size)
		}
	}

	tree, terr := session.Tree(analysis.DefaultTreeOptions)
	if terr == nil {
		fmt.Println("\nStructure:")
		fmt.Println(tree)
	}
}

func runAsk(source, question string) {
	cfg := loadConfig()
	session, hist := buildSession(cfg)
	defer session.Close()
	if hist != nil {
		defer hist.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := session.Load(ctx, source); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	answer, _ := session.Ask(ctx, question)
	fmt.Println(answer)
}

func runIssues(url string, limit int) {
	cfg := loadConfig()
	if limit > 0 {
		cfg.GitHub.IssueLimit = limit
	}

	gh, err := github.NewClient(cfg.GitHub)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	owner, name, err := github.ParseRepoURL(url)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	issues, err := gh.FetchIssues(ctx, owner, name, "open")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(issues) == 0 {
		fmt.Println("No open issues.")
		return
	}
	for _, issue := range issues {
		fmt.Printf("#%-6d %s\n", issue.Number, issue.Title)
		if len(issue.Labels) > 0 {
			fmt.Printf("        labels: %v\n", issue.Labels)
		}
	}
}
