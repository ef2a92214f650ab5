package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/unotes/internal/session"
	"github.com/rcliao/unotes/internal/store"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is active",
		Long:  "Resolve the stored session, renewing it silently when the access token was rejected.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := a.resolver.Resolve(ctx)
			if err != nil {
				return fail("status", err)
			}

			keys := []string{"state", "renewed", "user_id", "subject", "expires_at", "refresh_updated_at"}
			fields := map[string]any{
				"state":   res.State.String(),
				"renewed": res.Renewed,
			}
			if res.State == session.SignedIn {
				if c, err := a.resolver.Claims(ctx); err == nil {
					if c.UserID != "" {
						fields["user_id"] = c.UserID
					}
					if c.Subject != "" {
						fields["subject"] = c.Subject
					}
					if c.ExpiresAt != nil {
						fields["expires_at"] = c.ExpiresAt.UTC().Format(time.RFC3339)
					}
				} else {
					// Tokens are not required to be JWTs.
					a.logger.DebugContext(ctx, "access token claims unavailable", "error", err)
				}
			}
			if ts, err := a.db.UpdatedAt(ctx, store.RefreshToken); err == nil {
				fields["refresh_updated_at"] = ts.UTC().Format(time.RFC3339)
			} else if !errors.Is(err, store.ErrNoToken) {
				return fail("status", err)
			}

			a.printFields(cmd.OutOrStdout(), keys, fields)
			return nil
		},
	}
}
