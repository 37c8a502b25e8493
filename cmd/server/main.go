package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/config"
	"github.com/medilog/internal/db"
	"github.com/medilog/internal/handler"
	"github.com/medilog/internal/logging"
	"github.com/medilog/internal/metrics"
	"github.com/medilog/internal/router"
	"github.com/medilog/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "medilog",
		Short: "服药记录服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env")
			return runServe(envFile)
		},
	}
	rootCmd.PersistentFlags().String("env", ".env", "env 配置文件路径，不存在时忽略")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(initUserCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env")
			return runServe(envFile)
		},
	}
}

func initUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-user",
		Short: "创建管理员账号，已存在时提升为管理员",
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env")
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			cfg, cleanup, err := bootstrap(envFile)
			if err != nil {
				return err
			}
			defer cleanup()

			if username == "" {
				username = cfg.BootstrapUser
			}
			if password == "" {
				password = cfg.BootstrapPass
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			if err := db.Init(cfg.DatabasePath); err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			created, err := db.EnsureUser(db.DB, username, password)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			if created {
				fmt.Printf("管理员 %s 创建成功\n", username)
			} else {
				fmt.Printf("用户 %s 已存在，已确认为管理员\n", username)
			}
			return nil
		},
	}
	cmd.Flags().String("username", "", "登录邮箱")
	cmd.Flags().String("password", "", "登录密码")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "写入内置的疾病与药品参考数据",
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env")
			cfg, cleanup, err := bootstrap(envFile)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := db.Init(cfg.DatabasePath); err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			stats, err := db.SeedReference(db.DB)
			if err != nil {
				return fmt.Errorf("seed reference: %w", err)
			}
			fmt.Printf("写入疾病 %d 条，药品 %d 条\n", stats.Diseases, stats.Drugs)
			return nil
		},
	}
}

// bootstrap 读取配置并安装全局日志器
func bootstrap(envFile string) (config.AppConfig, func(), error) {
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("load config: %w", err)
	}
	_, cleanup, err := logging.Install(logging.Config{
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
		Development: cfg.IsDebug(),
	})
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, cleanup, nil
}

func runServe(envFile string) error {
	cfg, cleanup, err := bootstrap(envFile)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if err := db.Init(cfg.DatabasePath); err != nil {
		zap.L().Error("failed to initialize database", zap.Error(err))
		return err
	}

	if created, err := db.EnsureUser(db.DB, cfg.BootstrapUser, cfg.BootstrapPass); err != nil {
		zap.L().Warn("bootstrap user failed", zap.Error(err))
	} else if created {
		zap.L().Info("bootstrap user created", zap.String("username", cfg.BootstrapUser))
	}

	if cfg.SeedReference {
		stats, err := db.SeedReference(db.DB)
		if err != nil {
			zap.L().Warn("seed reference data failed", zap.Error(err))
		} else if stats.Diseases > 0 || stats.Drugs > 0 {
			zap.L().Info("reference data seeded", zap.Int("diseases", stats.Diseases), zap.Int("drugs", stats.Drugs))
		}
	}

	api := handler.NewAPI(db.DB, handler.Options{
		Location:  loc,
		Metrics:   metrics.NewCollector("medilog"),
		AITimeout: cfg.AITimeout,
		AIDefaults: service.SystemSettings{
			AIProvider:     cfg.AIProvider,
			OpenAIAPIKey:   cfg.OpenAIKey,
			DeepSeekAPIKey: cfg.DeepSeekKey,
			GeminiAPIKey:   cfg.GeminiKey,
		},
	})

	r := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookie:  cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			zap.L().Error("server failed", zap.Error(err))
			return err
		}
		return nil
	case sig := <-quit:
		zap.L().Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("server forced to shutdown", zap.Error(err))
		return err
	}
	zap.L().Info("server exited")
	return nil
}
