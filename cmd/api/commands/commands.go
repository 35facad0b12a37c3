package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/todolist/internal/adapters/repository"
	"github.com/taskmaster/todolist/internal/application/services"
	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/infrastructure/config"
	"github.com/taskmaster/todolist/internal/infrastructure/database"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/infrastructure/server"
	"github.com/taskmaster/todolist/internal/ports"
)

// Set at build time with -ldflags "-X ...commands.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const shutdownTimeout = 15 * time.Second

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the API server with all configured routes and middleware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return runMigration(cmd, "up", steps)
		},
	}
	upCmd.Flags().Int("steps", 0, "Number of migrations to apply (0 = all)")

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return runMigration(cmd, "down", steps)
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to revert (0 = all)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long:  "Create users and issue tokens from the command line",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			return createUser(cmd, username, password, email, entities.UserRole(role))
		},
	}
	createUserCmd.Flags().String("username", "", "Username (required)")
	createUserCmd.Flags().String("password", "", "Password (required)")
	createUserCmd.Flags().String("email", "", "Email address")
	createUserCmd.Flags().String("role", string(entities.UserRoleUser), "User role (user, admin)")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("password")

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a long-lived token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			return issueToken(cmd, username)
		},
	}
	tokenCmd.Flags().String("username", "", "Username (required)")
	_ = tokenCmd.MarkFlagRequired("username")

	userCmd.AddCommand(createUserCmd, tokenCmd)
	return userCmd
}

// NewSeedCommand loads fixture data in a single transaction
func NewSeedCommand() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, categories, tags and tasks from a fixtures file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return runSeed(cmd, file)
		},
	}
	seedCmd.Flags().String("file", "", "YAML fixtures file (defaults to seed.file, then the bundled fixtures)")
	return seedCmd
}

// NewEnsureUsersCommand creates the default admin and user accounts when missing
func NewEnsureUsersCommand() *cobra.Command {
	ensureCmd := &cobra.Command{
		Use:   "ensure-users",
		Short: "Create the default admin and user accounts if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			adminPassword, _ := cmd.Flags().GetString("admin-password")
			userPassword, _ := cmd.Flags().GetString("user-password")
			return ensureUsers(cmd, []services.SeedUser{
				{Username: "admin", Password: adminPassword, Email: "admin@example.com", Role: entities.UserRoleAdmin},
				{Username: "user", Password: userPassword, Email: "user@example.com", Role: entities.UserRoleUser},
			})
		},
	}
	ensureCmd.Flags().String("admin-password", "", "Password for the admin account (required)")
	ensureCmd.Flags().String("user-password", "", "Password for the user account (required)")
	_ = ensureCmd.MarkFlagRequired("admin-password")
	_ = ensureCmd.MarkFlagRequired("user-password")
	return ensureCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "todolist %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Build Date: %s\n", BuildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := server.New(ctx, cfg, db, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	appLogger.Infow("Starting todolist API server",
		"address", cfg.Server.GetAddr(),
		"environment", cfg.App.Environment,
		"version", Version,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.GetAddr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openDatabase loads configuration and connects, for commands that only
// need the pool.
func openDatabase(ctx context.Context) (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func openMigrator(ctx context.Context) (*database.DB, *database.Migrator, error) {
	_, db, err := openDatabase(ctx)
	if err != nil {
		return nil, nil, err
	}

	m, err := database.NewMigrator(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, m, nil
}

func runMigration(cmd *cobra.Command, direction string, steps int) error {
	db, m, err := openMigrator(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	var changed bool
	switch direction {
	case "up":
		changed, err = m.Up(steps)
	case "down":
		changed, err = m.Down(steps)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", direction, err)
	}

	if !changed {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations to run")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
	return nil
}

func showMigrationVersion(cmd *cobra.Command) error {
	db, m, err := openMigrator(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", version)
	fmt.Fprintf(cmd.OutOrStdout(), "Dirty: %t\n", dirty)
	return nil
}

func newAuthService(cfg *config.Config, db *database.DB) *services.AuthService {
	return services.NewAuthService(repository.NewUserRepository(db.DB), cfg.JWT, logger.NewNop())
}

func createUser(cmd *cobra.Command, username, password, email string, role entities.UserRole) error {
	cfg, db, err := openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	req := ports.RegisterRequest{Username: username, Password: password}
	if email != "" {
		req.Email = &email
	}

	user, err := newAuthService(cfg, db).CreateUser(cmd.Context(), req, role)
	if err != nil {
		return formatError(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User created successfully:\n")
	fmt.Fprintf(out, "  ID: %d\n", user.ID)
	fmt.Fprintf(out, "  Username: %s\n", user.Username)
	fmt.Fprintf(out, "  Role: %s\n", user.Role)
	return nil
}

func issueToken(cmd *cobra.Command, username string) error {
	cfg, db, err := openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := repository.NewUserRepository(db.DB).GetByUsername(cmd.Context(), entities.NormalizeUsername(username))
	if err != nil {
		return formatError(err)
	}

	token, err := newAuthService(cfg, db).IssueToken(user.ID, user.Role, cfg.JWT.RememberExpiresIn)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func newSeedService(db *database.DB) *services.SeedService {
	return services.NewSeedService(
		repository.NewUserRepository(db.DB),
		repository.NewTaskRepository(db.DB),
		repository.NewTaxonomyRepository(db.DB),
		repository.NewHistoryRepository(db.DB),
		db,
		logger.NewNop(),
	)
}

func runSeed(cmd *cobra.Command, file string) error {
	cfg, db, err := openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if file == "" {
		file = cfg.Seed.File
	}
	fixtures, err := services.LoadFixtures(file)
	if err != nil {
		return err
	}

	result, err := newSeedService(db).Seed(cmd.Context(), fixtures)
	if err != nil {
		return formatError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seed completed: %d users created, %d kept, %d categories, %d tags, %d tasks\n",
		result.UsersCreated, result.UsersKept, result.Categories, result.Tags, result.Tasks)
	return nil
}

func ensureUsers(cmd *cobra.Command, accounts []services.SeedUser) error {
	_, db, err := openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := newSeedService(db).EnsureUsers(cmd.Context(), accounts)
	if err != nil {
		return formatError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Default users ensured: %d created, %d already present\n", result.UsersCreated, result.UsersKept)
	return nil
}

// formatError expands validation failures into their field messages
func formatError(err error) error {
	var verr *entities.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("invalid input: %s", verr.Error())
	}
	return err
}
