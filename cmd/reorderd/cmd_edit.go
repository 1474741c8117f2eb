package main

import (
	"fmt"

	"post-reorder-backend/pkg/editor"
	"post-reorder-backend/pkg/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	editServer   string
	editToken    string
	editPostType string
)

// editCmd opens the terminal reorder editor against a running server
var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Reorder items from the terminal",
	Long: `Opens an interactive list of the post type's items. Every move is
submitted to the server straight away.

Without --token, a short-lived token is minted from the local JWT_SECRET.`,
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editServer, "server", "", "Server base URL (default http://localhost:$PORT)")
	editCmd.Flags().StringVar(&editToken, "token", "", "Session token")
	editCmd.Flags().StringVar(&editPostType, "post-type", "post", "Post type to reorder")
}

func runEdit(cmd *cobra.Command, args []string) error {
	if editServer == "" {
		editServer = "http://localhost:" + cfg.Port
	}
	if editToken == "" {
		token, _, err := mintToken("cli", "", []string{models.CapabilityEditPosts}, 0)
		if err != nil {
			return err
		}
		editToken = token
	}

	target, ok := cfg.Target(editPostType)
	if !ok {
		target = models.ReorderTarget{PostType: editPostType}
	}

	// the TUI owns the terminal; keep client logging off it
	client := editor.NewClient(editServer, editToken, editor.WithLogger(zap.NewNop()))
	model := editor.NewModel(cmd.Context(), client, target)
	if _, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	return nil
}
