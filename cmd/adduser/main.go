// Command adduser provisions an account from the command line. It can also
// open the account's cash wallet with a starting balance and set its savings
// PIN, so a fresh install is usable without going through the API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/models"
	"wallet-ledger/internal/savings"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

const defaultDBPath = "wallet.db"

type options struct {
	username string
	password string
	dbPath   string
	cash     *decimal.Decimal
	pin      string
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stdout, stderr)
	if err != nil {
		return err
	}

	if opts.password == "" {
		fmt.Fprint(stdout, "Password: ")
		if opts.password, err = readSecret(stdin); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(opts.password) == "" {
		return errors.New("password cannot be empty")
	}

	db, err := storage.NewDB(opts.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return provision(context.Background(), db, opts, stdout, logger)
}

func parseFlags(args []string, stdout, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	username := fs.String("user", "", "Username")
	password := fs.String("password", "", "Password (optional, will prompt if omitted)")
	dbPath := fs.String("db", defaultDBPath, "Path to database file")
	cash := fs.String("cash", "", "Opening cash wallet balance (optional)")
	pin := fs.String("savings-pin", "", "4-digit savings PIN (optional)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &options{
		username: strings.TrimSpace(*username),
		password: *password,
		dbPath:   *dbPath,
		pin:      *pin,
	}
	if opts.username == "" {
		fmt.Fprintln(stdout, "Usage: adduser -user <username> [-password <password>] [-db <db_path>] [-cash <amount>] [-savings-pin <pin>]")
		fs.PrintDefaults()
		return nil, errors.New("missing required flags: user")
	}

	// DB_PATH applies only when -db was left at its default.
	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == defaultDBPath {
		opts.dbPath = path
	}

	// Seed values are checked before anything is written.
	if *cash != "" {
		amount, err := decimal.NewFromString(*cash)
		if err != nil {
			return nil, fmt.Errorf("invalid -cash %q: %w", *cash, err)
		}
		if err := models.Validate(models.CashDraft{Balance: amount}); err != nil {
			return nil, fmt.Errorf("invalid -cash %q: %w", *cash, err)
		}
		opts.cash = &amount
	}
	if opts.pin != "" {
		if err := models.Validate(models.PINDraft{PIN: opts.pin}); err != nil {
			return nil, fmt.Errorf("invalid -savings-pin: %w", err)
		}
	}
	return opts, nil
}

// provision creates the user and applies the optional seeds.
func provision(ctx context.Context, db *storage.DB, opts *options, stdout io.Writer, logger *slog.Logger) error {
	_, err := db.GetUserByUsername(ctx, opts.username)
	switch {
	case err == nil:
		return fmt.Errorf("user %s already exists", opts.username)
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := auth.HashPassword(opts.password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := db.CreateUser(ctx, opts.username, hash)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	fmt.Fprintf(stdout, "User %s created successfully with ID %s\n", user.Username, user.ID)

	if opts.cash != nil {
		wallet, err := ledger.New(db, nil, logger).SetCash(ctx, user.ID, models.CashDraft{Balance: *opts.cash})
		if err != nil {
			return fmt.Errorf("failed to seed cash wallet: %w", err)
		}
		fmt.Fprintf(stdout, "Cash wallet opened with %s\n", wallet.Balance)
	}
	if opts.pin != "" {
		if err := savings.New(db, nil, logger).SetPIN(ctx, user.ID, models.PINDraft{PIN: opts.pin}); err != nil {
			return fmt.Errorf("failed to set savings PIN: %w", err)
		}
		fmt.Fprintln(stdout, "Savings PIN set")
	}
	return nil
}

// readSecret reads a line without echo from a terminal, or a plain line
// from anything else.
func readSecret(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
