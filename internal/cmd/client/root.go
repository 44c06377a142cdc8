package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the client.
// It registers the notify and stream command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "nc-notifyd",
		Short: "Notification client commands",
	}
	root.AddCommand(NewNotifyCommand(baseURL))
	root.AddCommand(NewStreamCommand(baseURL))
	return root
}
