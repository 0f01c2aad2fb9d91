// Command migrate manages the gateway schema and bootstrap data.
//
// Usage:
//
//	migrate up                                   apply the schema
//	migrate seed                                 insert development fixtures
//	migrate bootstrap --tenant <uuid> [--name s] issue a first management credential
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/domain/identity"
	"github.com/apigw/backend/internal/domain/resource"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/apigw/backend/internal/infrastructure/auth"
	"github.com/apigw/backend/internal/infrastructure/config"
	"github.com/apigw/backend/internal/infrastructure/logger"
	"github.com/apigw/backend/internal/infrastructure/persistence"
	"github.com/apigw/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	var (
		tenantFlag string
		nameFlag   string
		logLevel   string
	)
	flag.StringVar(&tenantFlag, "tenant", "", "Tenant ID for bootstrap")
	flag.StringVar(&nameFlag, "name", "bootstrap admin", "Credential name for bootstrap")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	switch command {
	case "up":
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Schema migrated")
	case "seed":
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		if err := seed(db); err != nil {
			log.Fatal("Seeding failed", zap.Error(err))
		}
		log.Info("Development fixtures inserted")
	case "bootstrap":
		tenantID, err := uuid.Parse(tenantFlag)
		if err != nil {
			log.Fatal("bootstrap requires --tenant with a valid UUID", zap.Error(err))
		}
		if err := bootstrap(db, tenantID, nameFlag); err != nil {
			log.Fatal("Bootstrap failed", zap.Error(err))
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

// seed inserts one tenant's worth of branches and leads for local development.
func seed(db *persistence.Database) error {
	ctx := context.Background()
	branches := persistence.NewGormBranchRepository(db.DB)
	tenantID := uuid.New()

	names := []string{"Downtown", "Airport", "Harbor"}
	for _, name := range names {
		branch, err := identity.NewBranch(tenantID, name)
		if err != nil {
			return err
		}
		if err := branches.Save(ctx, branch); err != nil {
			return err
		}
		for i := 0; i < 5; i++ {
			lead := &resource.Lead{
				BaseEntity: shared.NewBaseEntity(),
				TenantID:   tenantID,
				BranchID:   branch.ID,
				Name:       fmt.Sprintf("%s lead %d", name, i+1),
				Phone:      fmt.Sprintf("+1555%07d", i+1),
				Status:     "new",
			}
			if err := db.DB.WithContext(ctx).Create(models.LeadModelFromDomain(lead)).Error; err != nil {
				return err
			}
		}
	}

	fmt.Printf("Seeded tenant %s with %d branches\n", tenantID, len(names))
	return nil
}

// bootstrap issues a tenant's first management credential and prints the
// plaintext key. This is the only way to obtain an initial key; afterwards
// credentials are managed over the API.
func bootstrap(db *persistence.Database, tenantID uuid.UUID, name string) error {
	ctx := context.Background()
	creds := persistence.NewGormCredentialRepository(db.DB)
	keys := auth.NewAPIKeyService()

	plainKey, err := keys.Generate()
	if err != nil {
		return err
	}
	cred, err := credential.NewAPICredential(
		tenantID, name, credential.ScopeTypeTenant, nil,
		[]string{credential.ScopeAll},
		plainKey[:8], keys.Hash(plainKey),
	)
	if err != nil {
		return err
	}
	if err := creds.Save(ctx, cred); err != nil {
		return err
	}

	fmt.Printf("Credential %s issued for tenant %s\n", cred.ID, tenantID)
	fmt.Printf("API key (shown once, store it now): %s\n", plainKey)
	return nil
}

func printUsage() {
	fmt.Println("Usage: migrate [flags] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up         Apply the database schema")
	fmt.Println("  seed       Apply the schema and insert development fixtures")
	fmt.Println("  bootstrap  Issue a tenant's first management credential (--tenant required)")
	fmt.Println()
	flag.PrintDefaults()
}
