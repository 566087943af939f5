package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/ledger"
	"github.com/dvloznov/budget-ledger/internal/logger"
	"github.com/dvloznov/budget-ledger/internal/store"
	"github.com/dvloznov/budget-ledger/internal/store/local"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	log := logger.New("cli")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		runAdd(log)
	case "list":
		runList(log)
	case "refund":
		runRefund(log)
	case "reduce":
		runReduce(log)
	case "delete":
		runDelete(log)
	case "history":
		runHistory(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Budget Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  add       Record a new transaction")
	fmt.Println("  list      List transactions")
	fmt.Println("  refund    Issue a refund against a transaction")
	fmt.Println("  reduce    Reduce a transaction's amount")
	fmt.Println("  delete    Soft-delete a transaction")
	fmt.Println("  history   Show a transaction's audit trail")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nAll commands operate on the local SQLite ledger")
	fmt.Println("(LOCAL_DB_PATH, default budget-ledger.db).")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// openService wires a ledger service on top of the local store. The CLI is a
// single-user tool; the user id defaults to $USER.
func openService(log zerolog.Logger) (*ledger.Service, func()) {
	dbPath := os.Getenv("LOCAL_DB_PATH")
	if dbPath == "" {
		dbPath = "budget-ledger.db"
	}

	st, err := local.NewStore(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("Failed to open local store")
	}
	return ledger.NewService(st, log), func() { _ = st.Close() }
}

func defaultUser() string {
	if u := os.Getenv("LEDGER_USER"); u != "" {
		return u
	}
	return os.Getenv("USER")
}

func runAdd(log zerolog.Logger) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	user := fs.String("user", defaultUser(), "User ID")
	txType := fs.String("type", "expense", "Transaction type (expense, income, investment, savings, transfer)")
	category := fs.String("category", "", "Allocation category (need, want, savings, investments)")
	amount := fs.String("amount", "", "Transaction amount")
	date := fs.String("date", time.Now().Format("2006-01-02"), "Transaction date (YYYY-MM-DD)")
	description := fs.String("description", "", "Description")
	payment := fs.String("payment", "", "Payment method (cash, card, upi, netbanking, cheque, other)")
	portfolio := fs.String("portfolio", "", "Portfolio ID (for investment transactions)")
	fs.Parse(os.Args[2:])

	if *amount == "" || *category == "" {
		log.Fatal().Msg("Usage: cli add -amount N -category CAT [options]")
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid amount")
	}
	day, err := time.Parse("2006-01-02", *date)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date, expected YYYY-MM-DD")
	}

	svc, closeStore := openService(log)
	defer closeStore()

	ctx := logger.WithContext(context.Background(), log)

	tx, err := svc.RecordTransaction(ctx, &domain.Transaction{
		UserID:        *user,
		Type:          domain.TransactionType(*txType),
		Category:      domain.AllocationCategory(*category),
		Amount:        amt,
		Date:          day,
		Description:   *description,
		PaymentMethod: domain.PaymentMethod(*payment),
		PortfolioID:   *portfolio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to record transaction")
	}

	fmt.Printf("Recorded %s %s (%s): %s\n", tx.Type, tx.Amount, tx.Category, tx.TransactionID)
}

func runList(log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	user := fs.String("user", defaultUser(), "User ID")
	txType := fs.String("type", "", "Filter by transaction type")
	limit := fs.Int("limit", 20, "Maximum number of transactions")
	fs.Parse(os.Args[2:])

	svc, closeStore := openService(log)
	defer closeStore()

	txs, err := svc.Transactions(context.Background(), *user, store.TransactionFilter{
		Type:  domain.TransactionType(*txType),
		Limit: *limit,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	if len(txs) == 0 {
		fmt.Println("No transactions found.")
		return
	}

	fmt.Printf("=== Transactions (%d) ===\n", len(txs))
	for i, tx := range txs {
		fmt.Printf("\n%d. %s\n", i+1, tx.TransactionID)
		fmt.Printf("   Date:     %s\n", tx.Date.Format("2006-01-02"))
		fmt.Printf("   Type:     %s (%s)\n", tx.Type, tx.Category)
		fmt.Printf("   Amount:   %s\n", tx.Amount)
		fmt.Printf("   Status:   %s\n", tx.Status)
		if tx.Description != "" {
			fmt.Printf("   Desc:     %s\n", tx.Description)
		}
	}
	fmt.Println()
}

func runRefund(log zerolog.Logger) {
	fs := flag.NewFlagSet("refund", flag.ExitOnError)
	user := fs.String("user", defaultUser(), "User ID")
	id := fs.String("id", "", "Transaction ID to refund")
	amount := fs.String("amount", "", "Refund amount")
	reason := fs.String("reason", "", "Refund reason")
	fs.Parse(os.Args[2:])

	if *id == "" || *amount == "" {
		log.Fatal().Msg("Usage: cli refund -id TRANSACTION -amount N [-reason TEXT]")
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid amount")
	}

	svc, closeStore := openService(log)
	defer closeStore()

	refund, err := svc.IssueRefund(context.Background(), *user, *id, amt, *reason)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue refund")
	}

	fmt.Printf("Refund %s issued for %s (amount %s)\n", refund.TransactionID, *id, refund.Amount)
}

func runReduce(log zerolog.Logger) {
	fs := flag.NewFlagSet("reduce", flag.ExitOnError)
	user := fs.String("user", defaultUser(), "User ID")
	id := fs.String("id", "", "Transaction ID to reduce")
	amount := fs.String("amount", "", "Reduction amount")
	notes := fs.String("notes", "", "Reason for the reduction")
	fs.Parse(os.Args[2:])

	if *id == "" || *amount == "" {
		log.Fatal().Msg("Usage: cli reduce -id TRANSACTION -amount N [-notes TEXT]")
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid amount")
	}

	svc, closeStore := openService(log)
	defer closeStore()

	tx, err := svc.ReduceAmount(context.Background(), *user, *id, amt, *notes)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to reduce amount")
	}

	fmt.Printf("Transaction %s reduced to %s\n", tx.TransactionID, tx.Amount)
}

func runDelete(log zerolog.Logger) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	user := fs.String("user", defaultUser(), "User ID")
	id := fs.String("id", "", "Transaction ID to delete")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Usage: cli delete -id TRANSACTION")
	}

	svc, closeStore := openService(log)
	defer closeStore()

	if err := svc.SoftDelete(context.Background(), *user, *id); err != nil {
		log.Fatal().Err(err).Msg("Failed to delete transaction")
	}

	fmt.Printf("Transaction %s deleted\n", *id)
}

func runHistory(log zerolog.Logger) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	user := fs.String("user", defaultUser(), "User ID")
	id := fs.String("id", "", "Transaction ID")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Usage: cli history -id TRANSACTION")
	}

	svc, closeStore := openService(log)
	defer closeStore()

	recs, err := svc.History(context.Background(), *user, *id)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load history")
	}

	if len(recs) == 0 {
		fmt.Println("No history found.")
		return
	}

	fmt.Printf("=== History for %s (%d records) ===\n", *id, len(recs))
	for i, rec := range recs {
		fmt.Printf("\n%d. %s at %s\n", i+1, rec.Action, rec.RecordedAt.Format(time.RFC3339))
		if rec.Description != "" {
			fmt.Printf("   %s\n", rec.Description)
		}
		if len(rec.After) > 0 {
			var pretty map[string]interface{}
			if err := json.Unmarshal(rec.After, &pretty); err == nil {
				if amount, ok := pretty["amount"]; ok {
					fmt.Printf("   Amount after: %v\n", amount)
				}
				if status, ok := pretty["status"]; ok {
					fmt.Printf("   Status after: %v\n", status)
				}
			}
		}
	}
	fmt.Println()
}
