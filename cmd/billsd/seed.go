package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sefa-b/go-bill-ledger/internal/domain"
	"github.com/sefa-b/go-bill-ledger/internal/repository"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
)

// seedFile lists the users and transactions bills can reference.
type seedFile struct {
	Users []struct {
		ID       string `yaml:"id"`
		Username string `yaml:"username"`
	} `yaml:"users"`
	Transactions []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"transactions"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load users and transactions from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}

		users, txs, err := parseSeed(data)
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.close()

		if err := st.migrate(cmd.Context()); err != nil {
			return err
		}

		return applySeed(cmd.Context(), cmd.OutOrStdout(), st.repos, users, txs)
	},
}

// parseSeed decodes and validates a seed file.
func parseSeed(data []byte) ([]*domain.User, []*domain.Transaction, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	users := make([]*domain.User, 0, len(file.Users))
	for i, u := range file.Users {
		id, err := parseOptionalID(u.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("users[%d]: %w", i, err)
		}
		user := &domain.User{ID: id, Username: u.Username}
		if err := user.Validate(); err != nil {
			return nil, nil, fmt.Errorf("users[%d]: %w", i, err)
		}
		users = append(users, user)
	}

	txs := make([]*domain.Transaction, 0, len(file.Transactions))
	for i, t := range file.Transactions {
		id, err := parseOptionalID(t.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		txType, err := domain.ParseTransactionType(t.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("transactions[%d]: type: %w", i, err)
		}
		tx := &domain.Transaction{ID: id, Name: t.Name, Type: txType}
		if err := tx.Validate(); err != nil {
			return nil, nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		txs = append(txs, tx)
	}

	return users, txs, nil
}

// applySeed stores the parsed entities and prints their ids.
func applySeed(ctx context.Context, out io.Writer, repos *repository.Repositories, users []*domain.User, txs []*domain.Transaction) error {
	for _, user := range users {
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		fmt.Fprintf(out, "user\t%s\t%s\n", user.ID, user.Username)
	}

	for _, tx := range txs {
		if err := repos.Transactions.Create(ctx, tx); err != nil {
			return err
		}
		fmt.Fprintf(out, "transaction\t%s\t%s\t%s\n", tx.ID, tx.Name, tx.Type)
	}

	utils.Info("seed applied", "users", len(users), "transactions", len(txs))
	return nil
}

func parseOptionalID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("id: invalid UUID %q", raw)
	}
	return id, nil
}
