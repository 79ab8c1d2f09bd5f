// teammatectl 运维命令：迁移、演示数据、评分修复、角色调整。
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Anlan01819/AIteammate/internal/app"
	"github.com/Anlan01819/AIteammate/internal/core/config"
	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/internal/repo"
	"github.com/Anlan01819/AIteammate/internal/service"
)

type env struct {
	cfgPath string
	app     *app.App
	cleanup func()
}

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "teammatectl",
		Short:         "AI teammate marketplace maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(e.cfgPath)
			if err != nil {
				return err
			}
			// 迁移由 migrate 子命令显式执行
			cfg.DB.AutoMigrate = false
			log, cleanup := app.NewLogger(cfg.Log, "teammatectl")
			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				cleanup()
				return err
			}
			e.app = a
			e.cleanup = func() {
				a.Close()
				cleanup()
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.cleanup != nil {
				e.cleanup()
			}
		},
	}
	root.PersistentFlags().StringVarP(&e.cfgPath, "config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")

	root.AddCommand(
		migrateCmd(e),
		seedCmd(e),
		recomputeCmd(e),
		promoteCmd(e),
	)
	return root
}

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := repo.Migrate(e.app.DB.WithContext(cmd.Context())); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			e.app.Log.Info("migrate done")
			return nil
		},
	}
}

func ptr(v float64) *float64 { return &v }

var demoEmployees = []service.CreateEmployeeInput{
	{EmployeeNo: "AI-001", Name: "Ava Writer", Category: "content", Description: "Long-form articles, release notes and product copy.",
		Skills: []string{"copywriting", "seo", "editing"}, HourlyRate: ptr(45), MonthlyRate: ptr(5200)},
	{EmployeeNo: "AI-002", Name: "Dex Coder", Category: "engineering", Description: "Backend services, code review and test automation.",
		Skills: []string{"go", "python", "sql"}, HourlyRate: ptr(85), MonthlyRate: ptr(9800)},
	{EmployeeNo: "AI-003", Name: "Mira Analyst", Category: "data", Description: "Dashboards, cohort analysis and forecasting.",
		Skills: []string{"sql", "statistics", "visualization"}, HourlyRate: ptr(70), MonthlyRate: ptr(8000)},
	{EmployeeNo: "AI-004", Name: "Leo Support", Category: "customer-service", Description: "Ticket triage and multilingual customer replies.",
		Skills: []string{"support", "translation"}, HourlyRate: ptr(30), MonthlyRate: ptr(3500)},
	{EmployeeNo: "AI-005", Name: "Nova Designer", Category: "design", Description: "UI mockups, icon sets and brand guidelines.",
		Skills: []string{"figma", "illustration"}, HourlyRate: ptr(60), MonthlyRate: ptr(7000)},
	{EmployeeNo: "AI-006", Name: "Quinn Marketer", Category: "marketing", Description: "Campaign planning and ad copy experiments.",
		Skills: []string{"ads", "email", "analytics"}, HourlyRate: ptr(55), MonthlyRate: ptr(6300)},
}

func seedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo AI employees (existing employee ids are skipped)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			created := 0
			for _, in := range demoEmployees {
				_, err := e.app.Employees.Create(cmd.Context(), in)
				var ve *domain.ValidationError
				switch {
				case err == nil:
					created++
				case errors.As(err, &ve):
					e.app.Log.Info("seed skipped", zap.String("employee_id", in.EmployeeNo), zap.Error(err))
				default:
					return fmt.Errorf("seed %s: %w", in.EmployeeNo, err)
				}
			}
			e.app.Log.Info("seed done", zap.Int("created", created))
			return nil
		},
	}
}

func recomputeCmd(e *env) *cobra.Command {
	var id uint
	c := &cobra.Command{
		Use:   "recompute-ratings",
		Short: "Rebuild rating aggregates from reviews",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id != 0 {
				emp, err := e.app.Employees.RecomputeRating(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d %.2f (%d reviews)\n", emp.ID, emp.Rating, emp.TotalReviews)
				return nil
			}
			n, err := e.app.Employees.RecomputeAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d employees\n", n)
			return nil
		},
	}
	c.Flags().UintVar(&id, "employee", 0, "only this employee id")
	return c
}

func promoteCmd(e *env) *cobra.Command {
	var role string
	c := &cobra.Command{
		Use:   "promote <email>",
		Short: "Change a user's role (user, hr, admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch role {
			case domain.RoleUser, domain.RoleHR, domain.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			users := e.app.Store.Users()
			u, err := users.FindByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("user %s: %w", args[0], domain.ErrNotFound)
			}
			if err := users.UpdateFields(cmd.Context(), u.ID, map[string]any{"role": role}); err != nil {
				return err
			}
			e.app.Log.Info("role updated", zap.String("user_id", u.ID), zap.String("role", role))
			return nil
		},
	}
	c.Flags().StringVar(&role, "role", domain.RoleAdmin, "target role")
	return c
}
