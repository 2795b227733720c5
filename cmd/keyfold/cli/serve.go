package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keyfold/keyfold/internal/crypto"
	"github.com/keyfold/keyfold/internal/server"
	"github.com/keyfold/keyfold/internal/service"
)

const banner = `
 _              __     _    _
| |_____ _  _  / _|___| |__| |
| / / -_) || ||  _/ _ \ / _  |
|_\_\___|\_, ||_| \___/_\__,_|
         |__/
`

// Development fallbacks. Real deployments must set KEYFOLD_AUTH_JWT_SECRET
// (base64) and KEYFOLD_AUTH_MASTER_KEY (16, 24, or 32 bytes).
const (
	devJWTSecret = "a2V5Zm9sZC1kZXYtc2VjcmV0LWNoYW5nZS1tZQ=="
	devMasterKey = "0123456789abcdef0123456789abcdef"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the keyfold API server",
		Long:  "Start the HTTP server that exposes registration, login, and API key management.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	logger := newLogger(dev)

	// 1. Open the store
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "driver", st.Driver())

	// 2. Build the credential services from configuration. Secrets are
	// injected here once and never reached into afterwards.
	jwtSecret := viper.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		logger.Warn("auth.jwt_secret not set, using development default")
		jwtSecret = devJWTSecret
	}
	ttl := time.Duration(viper.GetInt64("auth.jwt_ttl_ms")) * time.Millisecond

	tokens, err := service.NewTokenIssuer(jwtSecret, ttl)
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}

	masterKey := viper.GetString("auth.master_key")
	if masterKey == "" {
		logger.Warn("auth.master_key not set, using development default")
		masterKey = devMasterKey
	}
	cipher, err := crypto.NewCipher([]byte(masterKey))
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}

	keys := service.NewManager(st, logger)
	vault := service.NewVault(cipher, st, logger)
	auth := service.NewAuthenticator(st, tokens, keys, logger)

	// 3. First-run hint
	hasAny, err := st.HasAnyPrincipal(context.Background())
	if err != nil {
		logger.Warn("failed to check for principals", "error", err)
	}
	if !hasAny {
		logger.Warn("no principals found - register via POST /auth/register or run: keyfold user create")
	}

	// 4. Build and start the HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port

	srv := server.New(srvCfg, st, tokens, keys, vault, auth, logger)

	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ OpenAPI: http://%s:%d/openapi.json\n", host, port)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}
