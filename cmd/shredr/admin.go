package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/toastx/shredr-fun/internal/adapter/helius"
	"github.com/toastx/shredr-fun/internal/adapter/postgres"
	"github.com/toastx/shredr-fun/internal/config"
	"github.com/toastx/shredr-fun/internal/domain/blob"
	"github.com/toastx/shredr-fun/internal/domain/webhook"
	"github.com/toastx/shredr-fun/internal/resilience"
	"github.com/toastx/shredr-fun/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "rollback":
		return runAdminRollback(args[1:])
	case "migration-version":
		return runAdminMigrationVersion(args[1:])
	case "list-blobs":
		return runAdminListBlobs(args[1:])
	case "create-webhook":
		return runAdminCreateWebhook(args[1:])
	case "get-webhook":
		return runAdminGetWebhook(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: shredr admin <command> [options]

Commands:
  migrate             Apply pending database migrations
  rollback            Roll back database migrations
  migration-version   Print the current migration version
  list-blobs          List stored nonce blobs
  create-webhook      Register a Helius webhook
  get-webhook         Show a Helius webhook
  help                Show this help message

Examples:
  shredr admin migrate
  shredr admin rollback --steps 2
  shredr admin list-blobs --limit 20
  shredr admin create-webhook --url https://relay.example.com/webhook/helius --types TRANSFER --addresses So11...
  shredr admin get-webhook --id 6f1c...
`)
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return err
	}
	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Migrations applied, version %d\n", v)
	return nil
}

func runAdminRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return errors.New("--steps must be at least 1")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps); err != nil {
		return err
	}
	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d step(s), version %d\n", *steps, v)
	return nil
}

func runAdminMigrationVersion(args []string) error {
	fs := flag.NewFlagSet("migration-version", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	v, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}

func runAdminListBlobs(args []string) error {
	fs := flag.NewFlagSet("list-blobs", flag.ContinueOnError)
	limit := fs.Int("limit", blob.DefaultLimit, "maximum number of blobs")
	offset := fs.Int("offset", 0, "number of blobs to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	blobs, err := postgres.NewStore(pool).ListBlobs(ctx, blob.ListQuery{Limit: *limit, Offset: *offset}.Normalize())
	if err != nil {
		return fmt.Errorf("list blobs: %w", err)
	}
	if len(blobs) == 0 {
		fmt.Println("No blobs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tSIZE")
	for i := range blobs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n",
			blobs[i].ID, time.UnixMilli(blobs[i].CreatedAt).UTC().Format(time.RFC3339), len(blobs[i].EncryptedBlob))
	}
	return w.Flush()
}

func loadWebhookService() (*service.WebhookService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	key := cfg.Helius.APIKey
	if key == "" {
		key, err = promptSecret("Helius API key: ")
		if err != nil {
			return nil, fmt.Errorf("read api key: %w", err)
		}
		if key == "" {
			return nil, errors.New("a Helius API key is required")
		}
	}

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	client := helius.NewClient(cfg.Helius.BaseURL, key, cfg.Helius.Timeout, breaker)
	return service.NewWebhookService(client, cfg.Webhook.AuthToken), nil
}

func runAdminCreateWebhook(args []string) error {
	fs := flag.NewFlagSet("create-webhook", flag.ContinueOnError)
	url := fs.String("url", "", "delivery URL (required)")
	types := fs.String("types", "ANY", "comma-separated transaction types")
	addresses := fs.String("addresses", "", "comma-separated account addresses")
	kind := fs.String("type", webhook.TypeEnhanced, "webhook type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *url == "" {
		return errors.New("--url is required")
	}

	svc, err := loadWebhookService()
	if err != nil {
		return err
	}

	w, err := svc.Create(context.Background(), webhook.CreateRequest{
		WebhookURL:       *url,
		TransactionTypes: splitList(*types),
		AccountAddresses: splitList(*addresses),
		WebhookType:      *kind,
	})
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Webhook created: %s\n", w.WebhookID)
	return nil
}

func runAdminGetWebhook(args []string) error {
	fs := flag.NewFlagSet("get-webhook", flag.ContinueOnError)
	id := fs.String("id", "", "webhook ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("--id is required")
	}

	svc, err := loadWebhookService()
	if err != nil {
		return err
	}
	w, err := svc.Get(context.Background(), *id)
	if err != nil {
		return fmt.Errorf("get webhook: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\t%s\n", w.WebhookID)
	_, _ = fmt.Fprintf(tw, "URL\t%s\n", w.WebhookURL)
	_, _ = fmt.Fprintf(tw, "TYPE\t%s\n", w.WebhookType)
	_, _ = fmt.Fprintf(tw, "TRANSACTION_TYPES\t%s\n", strings.Join(w.TransactionTypes, ","))
	_, _ = fmt.Fprintf(tw, "ADDRESSES\t%d\n", len(w.AccountAddresses))
	return tw.Flush()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// promptSecret reads a secret from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
