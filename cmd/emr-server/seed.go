package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinova/emr/internal/config"
	"github.com/clinova/emr/internal/domain/clinic"
	"github.com/clinova/emr/internal/domain/invoice"
	"github.com/clinova/emr/internal/domain/patient"
	"github.com/clinova/emr/internal/domain/user"
	"github.com/clinova/emr/internal/platform/auth"
	"github.com/clinova/emr/internal/platform/db"
	"github.com/clinova/emr/pkg/money"
)

// seedPassword is the shared password for every seeded account.
const seedPassword = "changeme123"

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load development fixtures (one clinic with staff, patients and invoices)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.IsDev() {
				return fmt.Errorf("seed only runs with ENV=development")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			return seed(ctx, pool)
		},
	}
}

func seed(ctx context.Context, pool *pgxpool.Pool) error {
	logger := zerolog.Nop()
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	clinicRepo := clinic.NewRepoPG(pool)
	userRepo := user.NewRepoPG(pool)
	patientRepo := patient.NewRepoPG(pool)
	invoiceSvc := invoice.NewService(invoice.NewRepoPG(pool), db.NewSequencer(pool), logger)

	address := "12 Harbor Road"
	c := &clinic.Clinic{
		Name:     "Harborview Family Clinic",
		Address:  &address,
		IsActive: true,
		Settings: clinic.DefaultSettings(),
	}
	if err := clinicRepo.Create(ctx, c); err != nil {
		return fmt.Errorf("seed clinic: %w", err)
	}

	staff := []struct {
		name string
		mail string
		role auth.Role
	}{
		{"Ada Mensah", "admin@harborview.test", auth.RoleSuperAdmin},
		{"Dr. Kofi Boateng", "doctor@harborview.test", auth.RoleDoctor},
		{"Efua Addo", "billing@harborview.test", auth.RoleBillingStaff},
	}
	users := make(map[auth.Role]*user.User, len(staff))
	for _, s := range staff {
		u := &user.User{
			Name:          s.name,
			Email:         s.mail,
			PasswordHash:  string(hash),
			Role:          s.role,
			ClinicID:      &c.ID,
			IsActive:      true,
			EmailVerified: true,
		}
		if err := userRepo.Create(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", s.mail, err)
		}
		users[s.role] = u
	}

	admin := users[auth.RoleSuperAdmin]
	c.SuperAdminID = &admin.ID
	if err := clinicRepo.Update(ctx, c); err != nil {
		return fmt.Errorf("link clinic admin: %w", err)
	}

	patientNames := []string{"Yaw Owusu", "Abena Sarpong", "Kwame Asante"}
	patients := make([]*patient.Patient, 0, len(patientNames))
	for _, name := range patientNames {
		p := &patient.Patient{
			ClinicID: c.ID,
			Name:     name,
			Status:   patient.StatusActive,
		}
		if err := patientRepo.Create(ctx, p); err != nil {
			return fmt.Errorf("seed patient %s: %w", name, err)
		}
		patients = append(patients, p)
	}

	// Invoices run through the service so numbering and totals follow the
	// production path.
	billing := users[auth.RoleBillingStaff].Principal()
	due := time.Now().AddDate(0, 0, 14)
	for i, p := range patients {
		inv, err := invoiceSvc.Create(ctx, billing, invoice.CreateInput{
			PatientID: p.ID,
			Items: []invoice.ItemInput{
				{Description: "Consultation", Quantity: 1, Rate: money.FromFloat(150)},
				{Description: "Lab panel", Quantity: 2, Rate: money.FromFloat(25)},
			},
			TaxRate: 0.08,
			DueDate: &due,
		})
		if err != nil {
			return fmt.Errorf("seed invoice: %w", err)
		}
		if i == 0 {
			continue // leave the first invoice in draft
		}
		if _, err := invoiceSvc.SetStatus(ctx, billing, inv.ID, invoice.SetStatusInput{Status: invoice.StatusSent}); err != nil {
			return fmt.Errorf("send invoice: %w", err)
		}
		if i == 2 {
			method := "Card"
			if _, err := invoiceSvc.SetStatus(ctx, billing, inv.ID, invoice.SetStatusInput{
				Status:        invoice.StatusPaid,
				PaymentMethod: &method,
			}); err != nil {
				return fmt.Errorf("pay invoice: %w", err)
			}
		}
	}

	fmt.Printf("Seeded clinic %s with %d staff, %d patients and %d invoices.\n",
		c.Name, len(staff), len(patients), len(patients))
	fmt.Printf("All accounts use password %q.\n", seedPassword)
	return nil
}
