// Package main provides the mealmind CLI entry point: an interactive meal
// recommendation chat backed by pluggable LLM providers and a persistent
// user store.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mealmind/internal/config"
	"mealmind/internal/data/embedded"
	"mealmind/internal/handlers"
	"mealmind/internal/intent"
	"mealmind/internal/logger"
	"mealmind/internal/orchestrator"
	"mealmind/internal/services"
	"mealmind/internal/session"
	"mealmind/internal/userstore"
	"mealmind/pkg/mealtypes"
)

var (
	logLevel string
	logFile  string
	testMode bool
	version  = "0.1.0" // This could be set at build time
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mealmind",
	Short: "Mealmind - conversational meal recommendations",
	Long: `Mealmind is a conversational agent that learns your profile (age, cuisine
preferences, medical conditions) and suggests personalized meals, checking in
after each suggestion until you are happy with it.`,
	Run: runChat,
}

// chatCmd represents the chat command (explicit version of default behavior)
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long:  `Start the interactive meal recommendation chat on stdin/stdout.`,
	Run:   runChat,
}

// usersCmd groups user-store maintenance commands.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect the persistent user store",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored user profiles",
	Run:   runUsersList,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored user profile by id",
	Args:  cobra.ExactArgs(1),
	Run:   runUsersDelete,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Mealmind v%s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&testMode, "test-mode", false, "Run in deterministic test mode")

	if err := viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-file flag: %v\n", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("test-mode", rootCmd.PersistentFlags().Lookup("test-mode")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding test-mode flag: %v\n", err)
		os.Exit(1)
	}

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersDeleteCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(versionCmd)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if err := logger.Configure(logLevel, logFile, testMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

// openUserStore returns the SQLite-backed store when a database path is
// configured, and a volatile in-memory one otherwise.
func openUserStore(cfg *config.Config) (mealtypes.UserStore, func(), error) {
	if cfg.DBPath == "" {
		logger.Info("No database path configured, user profiles will not persist")
		return userstore.NewMemoryStore(), func() {}, nil
	}
	store, err := userstore.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func runChat(_ *cobra.Command, _ []string) {
	logger.Info("Starting mealmind", "version", version)

	cfg := config.Load()
	prompts := embedded.MustLoadPrompts()

	factory := services.NewClientFactory(cfg.APIKeys)
	gen, err := factory.GetConfiguredClient(cfg.Provider)
	if err != nil {
		logger.Fatal("No usable LLM provider", "error", err)
	}
	logger.Info("LLM provider selected", "provider", gen.ProviderName())

	registry := services.NewRegistry()
	mustRegister := func(svc mealtypes.Service) {
		if err := registry.RegisterService(svc); err != nil {
			logger.Fatal("Service registration failed", "service", svc.Name(), "error", err)
		}
	}
	mustRegister(factory)
	if svc, ok := gen.(mealtypes.Service); ok {
		mustRegister(svc)
	}

	users, closeUsers, err := openUserStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open user store", "error", err)
	}
	defer closeUsers()

	var recipes mealtypes.RecipeSearch
	if cfg.PerplexityKey != "" {
		perplexity := services.NewPerplexityClient(cfg.PerplexityKey)
		mustRegister(perplexity)
		recipes = perplexity
		logger.Info("Recipe search enabled", "provider", "perplexity")
	}

	if err := registry.InitializeAll(); err != nil {
		logger.Fatal("Service initialization failed", "error", err)
	}

	sessions := session.NewStore(
		session.WithTimeout(cfg.SessionTimeout),
		session.WithSweepInterval(cfg.SweepInterval),
	)
	defer sessions.Close()

	router := orchestrator.NewRouter(
		sessions,
		intent.NewClassifier(gen, prompts.Intent),
		map[mealtypes.ConversationState]handlers.Handler{
			mealtypes.StateNormalChat:        handlers.NewChatHandler(gen, prompts.ChatPersona),
			mealtypes.StateProfileCollection: handlers.NewCollectHandler(gen, users, prompts.ProfileCollection),
			mealtypes.StateMealSuggestion:    handlers.NewSuggestHandler(gen, users, recipes, prompts.MealSuggestion),
			mealtypes.StateSatisfactionCheck: handlers.NewSatisfactionHandler(gen, prompts.Sentiment, prompts.WantsNew),
		},
	)

	fmt.Println("Welcome to Mealmind! Ask me for a meal suggestion, or just chat.")
	fmt.Println("Commands: /summary, /stats, /clear, /quit")

	chatLoop(router, sessions)
}

func chatLoop(router *orchestrator.Router, sessions *session.Store) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	var sessionID string

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			fmt.Println("Goodbye!")
			return
		case "/clear":
			if sessionID != "" {
				router.ClearSession(sessionID)
				sessionID = ""
			}
			fmt.Println("Session cleared.")
			continue
		case "/stats":
			printJSON(sessions.Stats())
			continue
		case "/summary":
			if sessionID == "" {
				fmt.Println("No active session yet.")
				continue
			}
			summary, err := router.GetSessionSummary(sessionID)
			if err != nil {
				fmt.Println("Session not found (it may have expired).")
				continue
			}
			printJSON(summary)
			continue
		}

		var reply string
		sessionID, reply = router.ProcessTurn(ctx, sessionID, line)
		fmt.Printf("mealmind> %s\n", reply)
	}
}

func runUsersList(_ *cobra.Command, _ []string) {
	cfg := config.Load()
	if cfg.DBPath == "" {
		fmt.Fprintln(os.Stderr, "MEALMIND_DB_PATH is not set")
		os.Exit(1)
	}
	store, err := userstore.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("Failed to open user store", "error", err)
	}
	defer store.Close()

	records, err := store.All(context.Background())
	if err != nil {
		logger.Fatal("Failed to list users", "error", err)
	}
	if len(records) == 0 {
		fmt.Println("No stored users.")
		return
	}
	for _, rec := range records {
		line := fmt.Sprintf("%s  %s (age %d, %s cuisine", rec.ID, rec.Name, rec.Age, rec.PrimaryCuisine)
		if v, ok := rec.BMI(); ok {
			line += fmt.Sprintf(", BMI %s", mealtypes.FormatBMI(v))
		}
		fmt.Println(line + ")")
	}
}

func runUsersDelete(_ *cobra.Command, args []string) {
	cfg := config.Load()
	if cfg.DBPath == "" {
		fmt.Fprintln(os.Stderr, "MEALMIND_DB_PATH is not set")
		os.Exit(1)
	}
	store, err := userstore.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("Failed to open user store", "error", err)
	}
	defer store.Close()

	if err := store.Delete(context.Background(), args[0]); err != nil {
		logger.Fatal("Failed to delete user", "error", err, "id", args[0])
	}
	fmt.Printf("Deleted user %s\n", args[0])
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
