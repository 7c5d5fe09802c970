package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/sipwell/internal/db"
	"gorm.io/gorm"
)

// newResetUserCommand builds the operator escape hatch for wiping one
// user without going through the admin API.
func newResetUserCommand() *cobra.Command {
	var chatID int64
	var dbPath string

	command := &cobra.Command{
		Use:   "reset-user",
		Short: "Delete a user and all their intake history by chat id",
		RunE: func(command *cobra.Command, _ []string) error {
			if chatID == 0 {
				return errors.New("--chat-id is required")
			}

			database, err := db.OpenSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			repos := db.NewRepositories(database)

			user, err := repos.Users.FindByChatID(chatID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no user with chat id %d", chatID)
			}
			if err != nil {
				return fmt.Errorf("load user: %w", err)
			}

			if err := repos.Users.DeleteCascade(user.ID); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}

			fmt.Fprintf(command.OutOrStdout(), "deleted user %d (chat %d) and their intake history\n", user.ID, chatID)
			return nil
		},
	}

	command.Flags().Int64Var(&chatID, "chat-id", 0, "Telegram chat id of the user to delete")
	command.Flags().StringVar(&dbPath, "db", filepath.Join("data", "sipwell.db"), "path to the sqlite database")
	return command
}
