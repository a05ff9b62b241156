package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/innotech/hrbot/internal/assistant"
	"github.com/innotech/hrbot/internal/auth"
	"github.com/innotech/hrbot/internal/bot"
	"github.com/innotech/hrbot/internal/models"
	"github.com/innotech/hrbot/internal/scoring"
	"github.com/innotech/hrbot/internal/storage"
	"github.com/innotech/hrbot/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	switch cfg.Storage.Backend {
	case "memory":
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Storage.Database.Host,
			Port:     cfg.Storage.Database.Port,
			User:     cfg.Storage.Database.User,
			Password: cfg.Storage.Database.Password,
			DBName:   cfg.Storage.Database.DBName,
			SSLMode:  cfg.Storage.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	default:
		logger.Info("Using file storage", zap.String("path", cfg.Storage.Path))
		fileStore, err := storage.NewFileStorage(cfg.Storage.Path, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
		fileStore.SetOnChange(func() {
			fmt.Println("[store updated by another session]")
		})
		store = fileStore
	}
	defer store.Close()

	// Initialize assistant when an API key is configured
	var asst assistant.Assistant
	if cfg.Assistant.APIKey != "" {
		asst = assistant.NewOpenAIAssistant(
			cfg.Assistant.APIKey,
			cfg.Assistant.BaseURL,
			cfg.Assistant.Model,
			cfg.Assistant.MaxTokens,
			cfg.Assistant.Temperature,
			logger,
		)
	}

	directory := auth.NewDirectory()
	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	fmt.Println("InnoTech HR Portal")
	identity, ok := login(scanner, directory)
	if !ok {
		return
	}

	if identity.HR {
		runHRConsole(ctx, scanner, store)
		return
	}
	runEmployeeSession(ctx, scanner, store, asst, identity, cfg.Chat.PollInterval, logger)
}

func login(scanner *bufio.Scanner, directory *auth.Directory) (models.Identity, bool) {
	for attempts := 0; attempts < 3; attempts++ {
		email := prompt(scanner, "Email: ")
		password := prompt(scanner, "Password: ")
		if identity, ok := directory.Authenticate(email, password); ok {
			fmt.Printf("Welcome, %s.\n", identity.Name)
			return identity, true
		}
		fmt.Println("Invalid credentials. Try alice@company.com / password")
	}
	return models.Identity{}, false
}

func runEmployeeSession(ctx context.Context, scanner *bufio.Scanner, store storage.Storage, asst assistant.Assistant, user models.Identity, pollInterval time.Duration, logger *zap.Logger) {
	// First login seeds the default score profile.
	scores, err := store.Scores(ctx, user.ID)
	if err == nil && len(scores) == 0 {
		if err := store.SaveScores(ctx, user.ID, scoring.InitialScores); err != nil {
			logger.Error("Failed to seed scores", zap.Error(err))
		}
	}

	conv := bot.NewConversation(store, asst, user, logger)
	fmt.Println("bot>", conv.Welcome(ctx))
	fmt.Println(`Commands: /leave <start> <end>, /issue, /harassment, /escalate, /yes, /no, /end, /recs, /skills, /complete <course-id>, /quit`)

	poller := bot.NewPoller(store, user.ID, pollInterval, func(msg *models.Message) {
		fmt.Println("hr>", conv.NoteHRMessage(ctx, msg))
	}, logger)
	poller.Start()
	defer poller.Stop()

	for {
		line := prompt(scanner, "> ")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		var replies []string
		var err error
		switch fields[0] {
		case "/quit":
			return
		case "/leave":
			if len(fields) != 3 {
				fmt.Println("usage: /leave 2024-01-10 2024-01-12")
				continue
			}
			start, err1 := time.Parse("2006-01-02", fields[1])
			end, err2 := time.Parse("2006-01-02", fields[2])
			if err1 != nil || err2 != nil {
				fmt.Println("dates must be YYYY-MM-DD")
				continue
			}
			if _, err = conv.HandleIntent(ctx, bot.IntentLeave); err == nil {
				replies, err = conv.HandleLeaveDates(ctx, start, end)
			}
		case "/issue":
			replies, err = conv.HandleIntent(ctx, bot.IntentIssue)
		case "/harassment":
			replies, err = conv.HandleIntent(ctx, bot.IntentHarassment)
		case "/escalate":
			replies, err = conv.HandleIntent(ctx, bot.IntentEscalate)
		case "/yes":
			replies, err = conv.HandleConfirm(ctx, true)
		case "/no":
			replies, err = conv.HandleConfirm(ctx, false)
		case "/end":
			replies, err = conv.EndChat(ctx)
		case "/recs":
			printRecommendations(ctx, store, user)
			continue
		case "/skills":
			printSkills(ctx, store, user)
			continue
		case "/complete":
			if len(fields) != 2 {
				fmt.Println("usage: /complete c4")
				continue
			}
			completeCourse(ctx, store, user, fields[1])
			continue
		default:
			replies, err = conv.HandleText(ctx, line)
		}

		if err != nil {
			fmt.Println("!", err)
			continue
		}
		for _, reply := range replies {
			fmt.Println("bot>", reply)
		}
	}
}

func printRecommendations(ctx context.Context, store storage.Storage, user models.Identity) {
	scores, err := store.Scores(ctx, user.ID)
	if err != nil {
		fmt.Println("!", err)
		return
	}
	engine := scoring.NewDefaultEngine()
	for _, row := range engine.RankRecommendations(scores, user.Name) {
		fmt.Printf("%s", row.Title)
		if row.Subtitle != "" {
			fmt.Printf(" — %s", row.Subtitle)
		}
		fmt.Println()
		for _, item := range row.Items {
			fmt.Printf("  [%s] %s (%s, %s)\n", item.ID, item.Title, item.Type, item.Duration)
		}
	}
}

func printSkills(ctx context.Context, store storage.Storage, user models.Identity) {
	scores, err := store.Scores(ctx, user.ID)
	if err != nil {
		fmt.Println("!", err)
		return
	}
	stats, err := scoring.ComputeLevelStats(scores)
	if err != nil {
		fmt.Println("!", err)
		return
	}
	fmt.Printf("Level %d (avg %d, %d points to next level, %.0f%% through band)\n",
		stats.Level, stats.Average, stats.PointsToNextLevel, stats.ProgressPercent)
	for _, skill := range scoring.DefaultSkills {
		band := scoring.ClassifySkillLevel(scores[skill.ID])
		fmt.Printf("  %-24s %3d  %s\n", skill.Name, scores[skill.ID], band.Label)
	}
}

func completeCourse(ctx context.Context, store storage.Storage, user models.Identity, courseID string) {
	item, ok := scoring.ItemByID(scoring.DefaultCatalog, courseID)
	if !ok {
		fmt.Println("unknown course:", courseID)
		return
	}

	scores, err := store.Scores(ctx, user.ID)
	if err != nil {
		fmt.Println("!", err)
		return
	}
	progress, err := store.Progress(ctx, user.ID)
	if err != nil {
		fmt.Println("!", err)
		return
	}

	newScores, newProgress, leveledUp := scoring.ApplyCourseCompletion(scores, progress, item)
	if err := store.SaveScores(ctx, user.ID, newScores); err != nil {
		fmt.Println("!", err)
		return
	}
	if err := store.SaveProgress(ctx, user.ID, newProgress); err != nil {
		fmt.Println("!", err)
		return
	}

	p := newProgress[item.ID]
	if leveledUp {
		fmt.Printf("LEVEL UP! You reached Level %d in %s!\n", p.Level, item.Title)
	} else {
		fmt.Printf("+10 XP to %s. Total XP: %d (Level %d)\n", item.Title, p.XP, p.Level)
	}
}

func runHRConsole(ctx context.Context, scanner *bufio.Scanner, store storage.Storage) {
	fmt.Println("HR console. Commands: list, stats, approve <id>, reject <id>, reply <id> <text>, message <user-id> <text>, reset, quit")

	for {
		line := prompt(scanner, "hr> ")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit":
			return
		case "list":
			requests, err := store.Requests(ctx)
			if err != nil {
				fmt.Println("!", err)
				continue
			}
			for _, req := range requests {
				flag := " "
				if req.Escalated {
					flag = "!"
				}
				fmt.Printf("%s %-10s %-8s %s  %s: %s\n",
					flag, req.Type, req.Status, req.ID, req.UserName, req.Message)
			}
		case "stats":
			stats, err := store.Stats(ctx)
			if err != nil {
				fmt.Println("!", err)
				continue
			}
			fmt.Printf("total=%d pending=%d escalated=%d leave=%d issues=%d harassment=%d\n",
				stats.Total, stats.Pending, stats.Escalated, stats.Leave, stats.Issues, stats.Harassment)
		case "approve", "reject":
			if len(fields) != 2 {
				fmt.Println("usage:", fields[0], "<request-id>")
				continue
			}
			status := models.StatusApproved
			if fields[0] == "reject" {
				status = models.StatusRejected
			}
			if _, err := store.UpdateRequestStatus(ctx, fields[1], status, ""); err != nil {
				fmt.Println("!", err)
				continue
			}
			fmt.Println("done; user notified")
		case "reply":
			if len(fields) < 3 {
				fmt.Println("usage: reply <request-id> <text>")
				continue
			}
			text := strings.Join(fields[2:], " ")
			if _, err := store.UpdateRequestStatus(ctx, fields[1], models.StatusReplied, text); err != nil {
				fmt.Println("!", err)
				continue
			}
			fmt.Println("reply sent")
		case "message":
			if len(fields) < 3 {
				fmt.Println("usage: message <user-id> <text>")
				continue
			}
			text := strings.Join(fields[2:], " ")
			if _, err := store.SendMessage(ctx, "", fields[1], text, models.SenderHR); err != nil {
				fmt.Println("!", err)
				continue
			}
			fmt.Println("message sent")
		case "reset":
			if err := store.Clear(ctx); err != nil {
				fmt.Println("!", err)
				continue
			}
			fmt.Println("system reset")
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !scanner.Scan() {
		os.Exit(0)
	}
	return strings.TrimSpace(scanner.Text())
}
