package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/charlahq/charla/agents"
	"github.com/charlahq/charla/internal/profile"
	"github.com/charlahq/charla/internal/version"
	"github.com/charlahq/charla/llm"
	"github.com/charlahq/charla/orchestrator"
	"github.com/charlahq/charla/routing"
	"github.com/charlahq/charla/server"
	"github.com/charlahq/charla/session"
)

var rootCmd = &cobra.Command{
	Use:   "charla",
	Short: `A WhatsApp Business conversation engine: routes every inbound message to the right domain agent over a shared session.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// .env is a development convenience; deployments set real env vars.
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Driver:  viper.GetString("driver"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		setupLogger(instanceProfile)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store, err := newStore(ctx, instanceProfile)
		if err != nil {
			slog.Error("failed to create session store", "error", err)
			os.Exit(1)
		}

		var llmService llm.Service
		if instanceProfile.IsLLMEnabled() {
			llmService, err = llm.NewService(&llm.Config{
				Provider:    instanceProfile.LLMProvider,
				Model:       instanceProfile.LLMModel,
				APIKey:      instanceProfile.LLMAPIKey,
				BaseURL:     instanceProfile.LLMBaseURL,
				Temperature: float32(instanceProfile.LLMTemperature),
			})
			if err != nil {
				slog.Error("failed to create llm service", "error", err)
				os.Exit(1)
			}
			go llmService.Warmup(ctx)
		} else {
			slog.Warn("no LLM API key configured: routing falls back to rules and agents degrade to error replies")
		}

		router := routing.NewRouter(schemaCaller(llmService), routing.Config{
			Enabled:         instanceProfile.LLMRoutingEnabled,
			Timeout:         time.Duration(instanceProfile.LLMTimeoutMs) * time.Millisecond,
			Temperature:     float32(instanceProfile.LLMTemperature),
			MaxDialogueText: instanceProfile.MaxDialogueText,
		})

		registry := agents.NewRegistry(llmService)

		controller := orchestrator.NewController(store, router, registry, orchestrator.Config{
			SessionTTL:      instanceProfile.SessionTTL,
			LockTTL:         instanceProfile.LockTTL,
			IdempotencyTTL:  instanceProfile.IdempotencyTTL,
			MaxBatonHops:    instanceProfile.MaxBatonHops,
			MaxDialogueText: instanceProfile.MaxDialogueText,
		})

		var sender *server.Sender
		if instanceProfile.WhatsAppToken != "" {
			sender = server.NewSender(server.SenderConfig{
				Token:   instanceProfile.WhatsAppToken,
				PhoneID: instanceProfile.WhatsAppPhoneID,
			})
		} else {
			slog.Warn("no WhatsApp token configured: replies are computed but not delivered")
		}

		s := server.NewServer(instanceProfile, controller, sender, store)
		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
		printGreetings(instanceProfile)

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM. The default signal
		// sent by the `kill` command is SIGTERM, which is taken as the
		// graceful shutdown signal by many systems, e.g. Kubernetes.
		signal.Notify(c, terminationSignals...)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		<-ctx.Done()
	},
}

// schemaCaller narrows the service to the router's interface, keeping the
// typed-nil trap out of the wiring.
func schemaCaller(svc llm.Service) routing.SchemaCaller {
	if svc == nil {
		return nil
	}
	return svc
}

func newStore(ctx context.Context, p *profile.Profile) (session.Store, error) {
	if p.Driver == "memory" {
		return session.NewMemoryStore(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     p.RedisAddr,
		Password: p.RedisPassword,
		DB:       p.RedisDB,
	})
	store := session.NewRedisStore(rdb)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("redis at %s unreachable: %w", p.RedisAddr, err)
	}
	return store, nil
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "redis")
	viper.SetDefault("port", 8080)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8080, "port of server")
	rootCmd.PersistentFlags().String("driver", "redis", "session store driver (redis, memory)")

	for _, flag := range []string{"mode", "addr", "port", "driver"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("charla")
	viper.AutomaticEnv()
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Charla %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}
	fmt.Printf("Mode: %s\n", p.Mode)
	fmt.Printf("Store driver: %s\n", p.Driver)
	if p.Addr == "" {
		fmt.Printf("Server running on port %d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
	fmt.Printf("Webhook endpoint: POST /webhook/whatsapp\n")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
