package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/keyfold/keyfold/internal/crypto"
	"github.com/keyfold/keyfold/internal/model"
	"github.com/keyfold/keyfold/internal/seed"
	"github.com/keyfold/keyfold/internal/service"
	"github.com/keyfold/keyfold/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage principals",
		Long:  "Create, list, and bulk-import the principals that can authenticate against keyfold.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserImportCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new principal",
		Example: `  keyfold user create --username alice --password secret
  keyfold user create --username alice  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runUserCreate(username, password string) error {
	// Prompt for password if not provided
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	hash, err := crypto.HashSecret(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	principal := &model.Principal{Username: username, PasswordHash: hash}
	if err := st.CreatePrincipal(context.Background(), principal); err != nil {
		if err == store.ErrDuplicate {
			return fmt.Errorf("username %q already exists", username)
		}
		return fmt.Errorf("create principal: %w", err)
	}

	fmt.Printf("Principal %q created (id %d)\n", username, principal.ID)
	return nil
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all principals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	principals, err := st.ListPrincipals(context.Background())
	if err != nil {
		return fmt.Errorf("list principals: %w", err)
	}

	type userRow struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		HasKey   bool   `json:"has_encrypted_key"`
		Created  string `json:"created_at"`
	}

	rows := make([]userRow, len(principals))
	for i, p := range principals {
		rows[i] = userRow{
			ID:       p.ID,
			Username: p.Username,
			HasKey:   p.EncryptedAPIKey != "",
			Created:  p.CreatedAt.Format("2006-01-02 15:04"),
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No principals found. Use 'keyfold user create' to create one.")
		return nil
	}

	fmt.Printf("%-6s %-24s %-10s %-18s\n", "ID", "USERNAME", "VAULT KEY", "CREATED")
	fmt.Printf("%-6s %-24s %-10s %-18s\n", "--", "--------", "---------", "-------")
	for _, u := range rows {
		hasKey := "no"
		if u.HasKey {
			hasKey = "yes"
		}
		fmt.Printf("%-6d %-24s %-10s %-18s\n", u.ID, u.Username, hasKey, u.Created)
	}

	return nil
}

// ---------- user import ----------

func newUserImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-create principals from a YAML seed file",
		Long: `Create principals listed in a YAML seed file. Entries whose username already
exists are skipped, so the same file can be applied repeatedly. Raw API keys
for entries with issue_key: true are printed once and cannot be recovered.`,
		Example: `  keyfold user import --file seed.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserImport(file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the YAML seed file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func runUserImport(file string) error {
	f, err := seed.Load(file)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	logger := newLogger(false)
	keys := service.NewManager(st, logger)

	result, err := seed.Apply(context.Background(), f, st, keys, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d principal(s), skipped %d existing\n", result.Created, result.Skipped)
	if len(result.Keys) > 0 {
		fmt.Println()
		fmt.Println("Issued API keys (save them now - they cannot be retrieved again):")
		for username, rawKey := range result.Keys {
			fmt.Printf("  %-24s %s\n", username, rawKey)
		}
	}
	return nil
}
