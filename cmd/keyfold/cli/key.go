package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/keyfold/keyfold/internal/service"
	"github.com/keyfold/keyfold/internal/store"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Issue and list the opaque API keys principals use to authenticate against keyfold.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Issue a new API key for a principal",
		Long:    "Generate a new API key bound to a principal. The raw key is shown once and cannot be retrieved again. Previously issued keys stay valid until their own expiry.",
		Example: `  keyfold key create --username alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(username)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Principal to bind the key to (required)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runKeyCreate(username string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	principal, err := st.GetPrincipalByUsername(ctx, username)
	if err != nil {
		if err == store.ErrNotFound {
			return fmt.Errorf("principal %q not found", username)
		}
		return fmt.Errorf("get principal: %w", err)
	}

	keys := service.NewManager(st, newLogger(false))
	rawKey, err := keys.Issue(ctx, principal)
	if err != nil {
		return fmt.Errorf("issue api key: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:      %s\n", rawKey)
	fmt.Printf("  Owner:    %s\n", username)
	fmt.Printf("  Expires:  %s\n", time.Now().AddDate(0, 6, 0).Format("2006-01-02"))
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		username   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List a principal's API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(username, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Principal whose keys to list (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runKeyList(username string, jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	principal, err := st.GetPrincipalByUsername(ctx, username)
	if err != nil {
		if err == store.ErrNotFound {
			return fmt.Errorf("principal %q not found", username)
		}
		return fmt.Errorf("get principal: %w", err)
	}

	keys, err := st.ListAPIKeysForPrincipal(ctx, principal.ID)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	type keyRow struct {
		Prefix  string `json:"prefix"`
		Created string `json:"created_at"`
		Expires string `json:"expires_at"`
		Live    bool   `json:"live"`
	}

	now := time.Now()
	rows := make([]keyRow, len(keys))
	for i, k := range keys {
		rows[i] = keyRow{
			Prefix:  k.KeyPrefix,
			Created: k.CreatedAt.Format("2006-01-02"),
			Expires: k.ExpiresAt.Format("2006-01-02"),
			Live:    !k.Expired(now),
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Printf("No API keys for %q. Use 'keyfold key create' to issue one.\n", username)
		return nil
	}

	fmt.Printf("%-16s %-12s %-12s %-6s\n", "PREFIX", "CREATED", "EXPIRES", "LIVE")
	fmt.Printf("%-16s %-12s %-12s %-6s\n", "------", "-------", "-------", "----")
	for _, k := range rows {
		live := "yes"
		if !k.Live {
			live = "no"
		}
		fmt.Printf("%-16s %-12s %-12s %-6s\n", k.Prefix, k.Created, k.Expires, live)
	}

	return nil
}
