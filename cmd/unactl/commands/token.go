package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"una/internal/shared/auth"

	"github.com/spf13/cobra"
)

func tokenCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Dev-токены для HTTP и WebSocket API",
	}
	cmd.AddCommand(tokenGenerateCmd(opts), tokenVerifyCmd(opts))
	return cmd
}

func tokenGenerateCmd(opts *options) *cobra.Command {
	var (
		userID string
		email  string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Выпустить токен, подписанный JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := auth.NewJWTService(opts.cfg.JWT).GenerateToken(userID, email)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "sub", "550e8400-e29b-41d4-a716-446655440000", "идентификатор пользователя")
	cmd.Flags().StringVar(&email, "email", "test@example.com", "email")
	return cmd
}

func tokenVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Проверить подпись и сроки токена",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, err := auth.NewJWTService(opts.cfg.JWT).ValidateToken(args[0])
			if err != nil {
				return err
			}

			view := struct {
				UserID    string    `json:"user_id"`
				Email     string    `json:"email,omitempty"`
				Role      string    `json:"role,omitempty"`
				ExpiresAt time.Time `json:"expires_at"`
			}{
				UserID: claims.UserID(),
				Email:  claims.Email,
				Role:   claims.Role,
			}
			if claims.ExpiresAt != nil {
				view.ExpiresAt = claims.ExpiresAt.Time.UTC()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}
