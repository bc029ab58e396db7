package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/eternisai/social-push/internal/config"
	"github.com/eternisai/social-push/internal/directory"
	"github.com/eternisai/social-push/internal/dispatch"
	"github.com/eternisai/social-push/internal/logger"
	"github.com/eternisai/social-push/internal/notifications"
	"github.com/eternisai/social-push/internal/platform"
	"github.com/eternisai/social-push/internal/trigger"
	"github.com/joho/godotenv"
)

// fixtureDirectory serves identities from a JSON file of users documents keyed by id.
type fixtureDirectory map[string]map[string]any

func (f fixtureDirectory) GetIdentity(ctx context.Context, id string) (*dispatch.Identity, error) {
	data, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("users/%s: %w", id, dispatch.ErrIdentityNotFound)
	}
	return directory.IdentityFromData(id, data), nil
}

func main() {
	var (
		eventFile = flag.String("event", "", "Path to a change event JSON file (plain or Firestore event form)")
		usersFile = flag.String("users", "", "Path to a JSON file of users documents keyed by id (optional, reads Firestore if not provided)")
		send      = flag.Bool("send", false, "Deliver through FCM instead of only logging the payload")
		showHelp  = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *showHelp || *eventFile == "" {
		fmt.Println("Change Event Replay")
		fmt.Println("Usage: go run cmd/replay-event/main.go -event <file> [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Println("  go run cmd/replay-event/main.go -event testdata/chat.json -users testdata/users.json")
		fmt.Println("  go run cmd/replay-event/main.go -event testdata/friend_request.json")
		fmt.Println("  go run cmd/replay-event/main.go -event testdata/friend_request.json -send")
		return
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	raw, err := os.ReadFile(*eventFile)
	if err != nil {
		log.Fatalf("Failed to read event file: %v", err)
	}
	event, err := trigger.DecodeEnvelope(raw)
	if err != nil {
		log.Fatalf("Failed to decode event: %v", err)
	}

	ctx := context.Background()

	var lookup dispatch.IdentityLookup
	var firebaseClient *platform.FirebaseClient
	if *usersFile != "" {
		users, err := loadFixture(*usersFile)
		if err != nil {
			log.Fatalf("Failed to load users file: %v", err)
		}
		lookup = users
	}

	if lookup == nil || *send {
		firebaseClient, err = platform.NewFirebaseClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredJSON)
		if err != nil {
			log.Fatalf("Failed to initialize firebase: %v", err)
		}
		defer firebaseClient.Close() //nolint:errcheck
		if lookup == nil {
			lookup = directory.NewUserDirectory(firebaseClient.Firestore)
		}
	}

	var sender notifications.MessageSender
	if firebaseClient != nil {
		sender = firebaseClient.Messaging
	}
	notifier := notifications.NewService(sender, appLogger, *send)

	decider := dispatch.NewDecider(lookup, notifier, appLogger.WithComponent("notification-decider"), dispatch.WithTimeout(cfg.NotificationTimeout))
	router := trigger.NewRouter(appLogger, nil)
	trigger.RegisterDecider(router, decider, cfg.Triggers.Enabled)

	fmt.Printf("Replaying %s (%s)...\n\n", event.PathString(), trigger.KindOf(event))

	results := router.Dispatch(ctx, event)
	if len(results) == 0 {
		fmt.Println("No entry point matches this event.")
		return
	}

	for i, r := range results {
		fmt.Printf("[%d/%d] %s\n", i+1, len(results), r.Trigger)
		fmt.Printf("      Outcome: %s\n", r.Outcome)
		if r.Reason != "" {
			fmt.Printf("      Reason:  %s\n", r.Reason)
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("-", 40))
	if !*send {
		fmt.Println("Dry run: nothing was sent. Pass -send to deliver.")
	}
}

func loadFixture(path string) (fixtureDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var users fixtureDirectory
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return users, nil
}
