package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/agentfusion/agentfusion/auth"
	"github.com/agentfusion/agentfusion/config"
	"github.com/agentfusion/agentfusion/session"
)

// UserCmd manages accounts in the configured database.
type UserCmd struct {
	Add    UserAddCmd    `cmd:"" help:"Create a user account."`
	List   UserListCmd   `cmd:"" help:"List user accounts."`
	Remove UserRemoveCmd `cmd:"" help:"Delete a user account."`
	Passwd UserPasswdCmd `cmd:"" help:"Change a user's password."`
}

func openUserStore(cli *CLI) (*auth.UserStore, func(), error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database == nil {
		return nil, nil, fmt.Errorf("user management requires a database section in %s", cli.Config)
	}
	svc, err := session.Open(cfg.Database.DSN())
	if err != nil {
		return nil, nil, err
	}
	store, err := auth.NewUserStore(svc.DB())
	if err != nil {
		svc.Close()
		return nil, nil, err
	}
	return store, func() { _ = svc.Close() }, nil
}

func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(pw) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}
	return string(pw), nil
}

type UserAddCmd struct {
	Username string `arg:"" help:"Account name."`
	Email    string `help:"Account email."`
	Role     string `help:"Account role." default:"user"`
}

func (c *UserAddCmd) Run(cli *CLI) error {
	store, done, err := openUserStore(cli)
	if err != nil {
		return err
	}
	defer done()

	password, err := promptPassword("Password")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	u, err := store.Create(context.Background(), c.Username, c.Email, password, c.Role)
	if err != nil {
		return err
	}
	fmt.Printf("Created user %s (role: %s)\n", u.Username, u.Role)
	return nil
}

type UserListCmd struct{}

func (c *UserListCmd) Run(cli *CLI) error {
	store, done, err := openUserStore(cli)
	if err != nil {
		return err
	}
	defer done()

	users, err := store.List(context.Background())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users.")
		return nil
	}
	w := os.Stdout
	fmt.Fprintf(w, "%-24s %-32s %-8s %s\n", "USERNAME", "EMAIL", "ROLE", "ACTIVE")
	for _, u := range users {
		fmt.Fprintf(w, "%-24s %-32s %-8s %v\n", u.Username, u.Email, u.Role, u.IsActive)
	}
	return nil
}

type UserRemoveCmd struct {
	Username string `arg:"" help:"Account name."`
}

func (c *UserRemoveCmd) Run(cli *CLI) error {
	store, done, err := openUserStore(cli)
	if err != nil {
		return err
	}
	defer done()

	if err := store.Delete(context.Background(), c.Username); err != nil {
		return err
	}
	fmt.Printf("Removed user %s\n", c.Username)
	return nil
}

type UserPasswdCmd struct {
	Username string `arg:"" help:"Account name."`
}

func (c *UserPasswdCmd) Run(cli *CLI) error {
	store, done, err := openUserStore(cli)
	if err != nil {
		return err
	}
	defer done()

	password, err := promptPassword("New password")
	if err != nil {
		return err
	}
	if err := store.SetPassword(context.Background(), c.Username, password); err != nil {
		return err
	}
	fmt.Printf("Password updated for %s\n", c.Username)
	return nil
}
