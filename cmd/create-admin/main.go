package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	"github.com/noah-isme/syllabus-portal-api/internal/repository"
	"github.com/noah-isme/syllabus-portal-api/internal/service"
	"github.com/noah-isme/syllabus-portal-api/pkg/config"
	"github.com/noah-isme/syllabus-portal-api/pkg/database"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/logger"
)

// create-admin bootstraps portal accounts, typically the first SUPERADMIN.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	svc := service.NewAdminService(repository.NewAdminRepository(db), validator.New(), logr)

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("=== Create portal admin ===")

	req := models.CreateAdminRequest{
		Username: prompt(reader, "Username: "),
		Email:    prompt(reader, "Email: "),
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		log.Fatalf("failed to read password: %v", err)
	}
	req.Password = string(password)

	role := strings.ToUpper(prompt(reader, "Role [SUPERADMIN/ADMIN] (default SUPERADMIN): "))
	if role == "" {
		role = string(models.RoleSuperAdmin)
	}
	req.Role = models.UserRole(role)
	if req.Role == models.RoleAdmin {
		if courses := prompt(reader, "Assigned course codes (comma separated): "); courses != "" {
			req.AssignedCourses = strings.Split(courses, ",")
		}
	}

	admin, err := svc.Create(ctx, req, "", models.LoginRequest{UserAgent: "create-admin"})
	if err != nil {
		if errors.Is(err, appErrors.ErrConflict) {
			log.Fatalf("an admin with username %q or email %q already exists", req.Username, req.Email)
		}
		log.Fatalf("%s: %v", appErrors.CodeOf(err), err)
	}

	fmt.Printf("created %s %s (%s) id=%s\n", admin.Role, admin.Username, admin.Email, admin.ID)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
