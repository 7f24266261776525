package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledgerline/ledgerline/internal/auth"
	"github.com/ledgerline/ledgerline/internal/rbac"
)

// UserCreator stores a new active user.
type UserCreator interface {
	CreateUser(ctx context.Context, email, password string) (*auth.User, error)
}

// RoleManager seeds the permission catalogue and grants roles.
type RoleManager interface {
	Seed(ctx context.Context) (rbac.Role, error)
	GrantRole(ctx context.Context, userID int64, roleName string) error
}

// AdminCLI bootstraps operator accounts.
type AdminCLI struct {
	users UserCreator
	roles RoleManager
}

// NewAdminCLI wires the helper.
func NewAdminCLI(users UserCreator, roles RoleManager) (*AdminCLI, error) {
	if users == nil || roles == nil {
		return nil, errors.New("admin cli: users and roles are required")
	}
	return &AdminCLI{users: users, roles: roles}, nil
}

// CreateUserOptions configures CreateUserCommand.
type CreateUserOptions struct {
	Email      string
	Password   string
	Role       string
	JSONOutput bool
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

// CreateUserSummary is printed with --json.
type CreateUserSummary struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CreateUserCommand seeds roles, creates the user and grants the role. The
// password is read from the first line of stdin when not given.
func (c *AdminCLI) CreateUserCommand(ctx context.Context, opts CreateUserOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Role == "" {
		opts.Role = rbac.AdminRole
	}
	if strings.TrimSpace(opts.Email) == "" {
		fmt.Fprintln(opts.Stderr, "admin: --email is required")
		return 2
	}
	if opts.Password == "" {
		line, err := bufio.NewReader(opts.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(opts.Stderr, "admin: read password: %v\n", err)
			return 1
		}
		opts.Password = strings.TrimRight(line, "\r\n")
	}

	if _, err := c.roles.Seed(ctx); err != nil {
		fmt.Fprintf(opts.Stderr, "admin: seed roles: %v\n", err)
		return 1
	}
	user, err := c.users.CreateUser(ctx, opts.Email, opts.Password)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "admin: create user: %v\n", err)
		if errors.Is(err, auth.ErrWeakPassword) {
			return 2
		}
		return 1
	}
	if err := c.roles.GrantRole(ctx, user.ID, opts.Role); err != nil {
		fmt.Fprintf(opts.Stderr, "admin: grant %s: %v\n", opts.Role, err)
		return 1
	}

	summary := CreateUserSummary{ID: user.ID, Email: user.Email, Role: opts.Role}
	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(opts.Stderr, "admin: encode: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(opts.Stdout, "created user %d (%s) with role %s\n", summary.ID, summary.Email, summary.Role)
	return 0
}
