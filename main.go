package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalehub/claude-relay/internal/admission"
	"github.com/kalehub/claude-relay/internal/auth"
	"github.com/kalehub/claude-relay/internal/config"
	"github.com/kalehub/claude-relay/internal/configwatch"
	"github.com/kalehub/claude-relay/internal/oauthlogin"
	"github.com/kalehub/claude-relay/internal/proxy"
	"github.com/kalehub/claude-relay/internal/telemetry"
	"github.com/kalehub/claude-relay/internal/upstream"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "claude-relay",
		Short: "A local reverse proxy translating OpenAI-shaped requests to Anthropic's API",
	}
	root.AddCommand(newLoginCmd(), newServeCmd(), newInfoCmd())
	return root
}

func newLoginCmd() *cobra.Command {
	var noBrowser bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize this machine against Anthropic's OAuth endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(noBrowser)
		},
	}
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "do not try to open a browser automatically")
	return cmd
}

func runLogin(noBrowser bool) error {
	sess, err := oauthlogin.NewSession()
	if err != nil {
		return fmt.Errorf("start login session: %w", err)
	}

	authURL := sess.AuthURL()
	if !noBrowser {
		openBrowser(authURL)
	}
	fmt.Fprintln(os.Stderr, "Open the following URL to authorize this machine:")
	fmt.Fprintln(os.Stderr, authURL)
	fmt.Fprintln(os.Stderr)
	fmt.Fprint(os.Stderr, "Paste the authorization code shown after approving access: ")

	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	code, err := sess.ParsePastedCode(line)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := sess.ExchangeCode(ctx, code); err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Login successful; credentials saved to", auth.HomeDir())
	return nil
}

func newServeCmd() *cobra.Command {
	cfg := config.DefaultFromEnv()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local reverse proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Host, "host", cfg.Host, "bind host")
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	cmd.Flags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "run gin in debug mode")
	cmd.Flags().IntVar(&cfg.CacheMessageCount, "cache-message-count", cfg.CacheMessageCount, "number of trailing messages to mark cache_control")
	cmd.Flags().IntVar(&cfg.DedupeWindowMillis, "dedupe-window-ms", cfg.DedupeWindowMillis, "duplicate-body suppression window in milliseconds")
	return cmd
}

func runServe(cfg *config.ServerConfig) error {
	if cfg.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if _, err := auth.ReadCredentials(); err != nil {
		logrus.WithError(err).Warn("no stored credentials; run 'claude-relay login' before sending requests")
	}

	watcher, err := configwatch.New()
	if err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	defer watcher.Stop()

	adm := admission.New(time.Duration(cfg.DedupeWindowMillis) * time.Millisecond)
	defer adm.Stop()

	var sink telemetry.Sink = telemetry.NopSink{}
	if path := os.Getenv("CLAUDE_RELAY_TELEMETRY_FILE"); path != "" {
		fs, err := telemetry.NewFileSink(path)
		if err != nil {
			return fmt.Errorf("open telemetry sink: %w", err)
		}
		defer fs.Close()
		sink = fs
	}

	srv := proxy.New(proxy.Options{
		Tokens:            auth.NewTokenManager(),
		Admission:         adm,
		Watcher:           watcher,
		Client:            upstream.New(),
		Sink:              sink,
		CacheMessageCount: cfg.CacheMessageCount,
		Debug:             cfg.Debug,
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: srv.Engine(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithFields(logrus.Fields{"host": cfg.Host, "port": cfg.Port}).Info("claude-relay listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logrus.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newInfoCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show sign-in status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print raw auth.json contents")
	return cmd
}

func runInfo(jsonOut bool) error {
	creds, err := auth.ReadCredentials()
	if jsonOut {
		if err != nil {
			fmt.Println("{}")
			return nil
		}
		data, marshalErr := json.MarshalIndent(creds, "", "  ")
		if marshalErr != nil {
			return marshalErr
		}
		fmt.Println(string(data))
		return nil
	}

	if err != nil || creds.AccessToken == "" {
		fmt.Println("Account")
		fmt.Println("  - Not signed in")
		fmt.Println("  - Run: claude-relay login")
		return nil
	}

	claims, claimErr := auth.ParseJWTClaims(creds.AccessToken)
	fmt.Println("Account")
	fmt.Println("  - Signed in with Claude")
	if claimErr == nil {
		if email := claimString(claims, "email"); email != "" {
			fmt.Printf("  - Login: %s\n", email)
		}
	}
	fmt.Printf("  - Scope: %s\n", valueOrUnknown(creds.Scope))
	fmt.Printf("  - Token expires: %s\n", valueOrUnknown(creds.ExpiresAt))
	return nil
}

func valueOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func claimString(claims map[string]any, key string) string {
	if claims == nil {
		return ""
	}
	v, _ := claims[key].(string)
	return v
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}
	_ = cmd.Start()
}
