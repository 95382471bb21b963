// Command stokctl is the operator CLI: schema migration, user creation and
// tenant listing against the configured database.
package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	_ "time/tzdata"

	"stok-takip/internal/admin"
	"stok-takip/internal/apierr"
	"stok-takip/internal/config"
	"stok-takip/internal/database"
	"stok-takip/internal/logger"
	"stok-takip/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	rootCmd = &cobra.Command{
		Use:   "stokctl",
		Short: "Operator tool for the stock tracking service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()
			logger.Init(logger.Config{
				Level:       cfg.LogLevel,
				Environment: cfg.Environment,
				ServiceName: "stokctl",
			})
			return nil
		},
		SilenceUsage: true,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	}
	addUserCmd = &cobra.Command{
		Use:   "add-user",
		Short: "Add a user to an existing restaurant",
		RunE:  runAddUser,
	}
	tenantsCmd = &cobra.Command{
		Use:   "tenants",
		Short: "List registered restaurants",
		RunE:  runTenants,
	}

	cfg *config.Config

	tenantSlug string
	newUser    admin.CreateUserRequest
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tenantsCmd)
	rootCmd.AddCommand(addUserCmd)

	f := addUserCmd.Flags()
	f.StringVar(&tenantSlug, "tenant", "", "restaurant slug, as listed by the tenants command")
	f.StringVar(&newUser.Email, "email", "", "login email")
	f.StringVar(&newUser.Username, "username", "", "unique username")
	f.StringVar(&newUser.Password, "password", "", "password, at least 6 characters")
	f.StringVar(&newUser.Role, "role", string(models.RoleEmployee), "owner, manager or employee")
	f.StringVar(&newUser.FirstName, "first-name", "", "first name")
	f.StringVar(&newUser.LastName, "last-name", "", "last name")
	f.StringVar(&newUser.Phone, "phone", "", "phone number")
	for _, name := range []string{"tenant", "email", "username", "password", "first-name", "last-name"} {
		_ = addUserCmd.MarkFlagRequired(name)
	}
}

func openDB() (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return db, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Get().Info("migration complete", zap.String("driver", cfg.DatabaseDriver))
	return nil
}

func runAddUser(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}

	var tenant models.Tenant
	if err := db.Where("slug = ?", tenantSlug).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no restaurant with slug %q", tenantSlug)
		}
		return err
	}

	u, err := admin.NewUser(db, tenant.ID, newUser)
	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) && apiErr.Field != "" {
			return fmt.Errorf("%s: %s", apiErr.Field, apiErr.Message)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (id %d) in %s\n", u.Role, u.Email, u.ID, tenant.Name)
	return nil
}

func runTenants(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}

	var tenants []models.Tenant
	if err := db.Order("name asc").Find(&tenants).Error; err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tNAME\tPLAN\tACTIVE")
	for _, t := range tenants {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", t.ID, t.Slug, t.Name, t.Subscription.Plan, t.Subscription.IsActive)
	}
	return w.Flush()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
