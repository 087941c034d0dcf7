package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/jobpilot/internal/api/middleware"
	"github.com/kiranshivaraju/jobpilot/internal/config"
	"github.com/kiranshivaraju/jobpilot/internal/store"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// apiKeyPrefix marks raw keys issued by this service.
const apiKeyPrefix = "jp_"

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key",
	Long:  "Creates an API key and prints the raw key once. Only its bcrypt hash is stored.",
	RunE:  runKeysCreate,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys, revoked ones included",
	RunE:  runKeysList,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

var (
	keyName   string
	keyScopes []string
)

func init() {
	keysCreateCmd.Flags().StringVar(&keyName, "name", "", "Human-readable key name (required)")
	keysCreateCmd.Flags().StringSliceVar(&keyScopes, "scope", []string{"read", "write"}, "Scopes recorded on the key")

	if err := keysCreateCmd.MarkFlagRequired("name"); err != nil {
		panic(fmt.Sprintf("failed to mark name flag as required: %v", err))
	}

	keysCmd.AddCommand(keysCreateCmd, keysListCmd, keysRevokeCmd)
	rootCmd.AddCommand(keysCmd)
}

type keyCreator interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
}

type keyLister interface {
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
}

type keyRevoker interface {
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// withKeyStore connects to Postgres for the duration of fn.
func withKeyStore(ctx context.Context, fn func(*store.PostgresStore) error) error {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(store.NewPostgresStore(pool))
}

func runKeysCreate(cmd *cobra.Command, _ []string) error {
	return withKeyStore(cmd.Context(), func(s *store.PostgresStore) error {
		return createKey(cmd.Context(), s, keyName, keyScopes, cmd.OutOrStdout())
	})
}

func runKeysList(cmd *cobra.Command, _ []string) error {
	return withKeyStore(cmd.Context(), func(s *store.PostgresStore) error {
		return listKeys(cmd.Context(), s, cmd.OutOrStdout())
	})
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid key id %q: %w", args[0], err)
	}
	return withKeyStore(cmd.Context(), func(s *store.PostgresStore) error {
		return revokeKey(cmd.Context(), s, id, cmd.OutOrStdout())
	})
}

func createKey(ctx context.Context, s keyCreator, name string, scopes []string, out io.Writer) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("key name must not be empty")
	}

	raw, key, err := newAPIKey(name, scopes, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("store api key: %w", err)
	}

	fmt.Fprintf(out, "Created API key %q (%s)\n", key.Name, key.ID)
	fmt.Fprintf(out, "Key: %s\n", raw)
	fmt.Fprintln(out, "Store it now; it cannot be shown again.")
	return nil
}

// newAPIKey returns a fresh raw key and the record that authenticates it.
func newAPIKey(name string, scopes []string, cost int) (string, *models.APIKey, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate key: %w", err)
	}
	raw := apiKeyPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash key: %w", err)
	}

	now := time.Now().UTC()
	return raw, &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:mw.KeyPrefixLen],
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func listKeys(ctx context.Context, s keyLister, out io.Writer) error {
	keys, err := s.ListAPIKeys(ctx)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}
	if len(keys) == 0 {
		fmt.Fprintln(out, "No API keys")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tSCOPES\tLAST USED\tSTATUS")
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.UTC().Format(time.RFC3339)
		}
		status := "active"
		if !k.Active() {
			status = "revoked"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			k.ID, k.Name, k.KeyPrefix, strings.Join(k.Scopes, ","), lastUsed, status)
	}
	return tw.Flush()
}

func revokeKey(ctx context.Context, s keyRevoker, id uuid.UUID, out io.Writer) error {
	if err := s.RevokeAPIKey(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no active API key with id %s", id)
		}
		return fmt.Errorf("revoke api key: %w", err)
	}
	fmt.Fprintf(out, "Revoked API key %s\n", id)
	return nil
}
