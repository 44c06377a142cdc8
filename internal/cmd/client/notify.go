package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// NewNotifyCommand constructs the `notify` command group and subcommands.
func NewNotifyCommand(baseURL BaseURLFunc) *cobra.Command {
	notifyCmd := &cobra.Command{Use: "notify", Short: "Notification operations"}

	notifyCmd.AddCommand(
		newNotifySendCommand(baseURL),
		newNotifySubscribeCommand(baseURL),
		newNotifyCloseCommand(baseURL),
	)

	return notifyCmd
}

// newNotifySendCommand constructs the `notify send` subcommand.
func newNotifySendCommand(baseURL BaseURLFunc) *cobra.Command {
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Publish a notification to a stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			event, _ := cmd.Flags().GetString("event")
			data, _ := cmd.Flags().GetString("data")
			if event == "" {
				return fmt.Errorf("--event is required")
			}

			body := map[string]any{"stream": stream, "event": event, "payload": []byte(data)}
			b, _ := json.Marshal(body)
			resp, err := http.Post(baseURL()+"/v1/notifications", "application/json", bytes.NewReader(b))
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode >= 300 {
				return httpError(resp)
			}
			var out map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(out)
		},
	}
	sendCmd.Flags().String("stream", "", "Target stream (empty = default stream)")
	sendCmd.Flags().String("event", "", "Event name")
	sendCmd.Flags().String("data", "", "Event payload")
	return sendCmd
}

// newNotifySubscribeCommand constructs the `notify subscribe` subcommand.
func newNotifySubscribeCommand(baseURL BaseURLFunc) *cobra.Command {
	subCmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe to a stream and print notifications as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			filter, _ := cmd.Flags().GetString("filter")
			start, _ := cmd.Flags().GetString("start")
			stop, _ := cmd.Flags().GetString("stop")
			client, _ := cmd.Flags().GetString("client")
			limit, _ := cmd.Flags().GetInt("limit")

			if _, err := parseTimeArg(start); err != nil {
				return err
			}
			if _, err := parseTimeArg(stop); err != nil {
				return err
			}

			q := url.Values{}
			if stream != "" {
				q.Set("stream", stream)
			}
			if filter != "" {
				q.Set("filter", filter)
			}
			if start != "" {
				q.Set("startTime", start)
			}
			if stop != "" {
				q.Set("stopTime", stop)
			}
			if client != "" {
				q.Set("client", client)
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
				baseURL()+"/v1/subscriptions/subscribe?"+q.Encode(), nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode >= 300 {
				return httpError(resp)
			}
			if assigned := resp.Header.Get("X-Subscription-Client"); assigned != "" && client == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "client:", assigned)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			printed := 0
			var eventType string
			sc := bufio.NewScanner(resp.Body)
			for sc.Scan() {
				line := sc.Text()
				switch {
				case strings.HasPrefix(line, "event: "):
					eventType = strings.TrimPrefix(line, "event: ")
				case strings.HasPrefix(line, "data: "):
					data := strings.TrimPrefix(line, "data: ")
					if eventType != "notification" {
						_ = enc.Encode(map[string]any{"marker": eventType})
						if eventType == "notificationComplete" {
							return nil
						}
						continue
					}
					var ev struct {
						ID        string `json:"id"`
						Name      string `json:"name"`
						EventTime int64  `json:"eventTime"`
						Payload   []byte `json:"payload"`
					}
					if err := json.Unmarshal([]byte(data), &ev); err != nil {
						continue
					}
					out := map[string]any{"id": ev.ID, "name": ev.Name, "eventTime": ev.EventTime}
					_ = enc.Encode(decodedPayload(out, ev.Payload))
					printed++
					if limit > 0 && printed >= limit {
						return nil
					}
				}
			}
			return sc.Err()
		},
	}
	subCmd.Flags().String("stream", "", "Stream (empty = default stream)")
	subCmd.Flags().String("filter", "", "CEL filter (server-side)")
	subCmd.Flags().String("start", "", "Replay start: RFC3339 or ms")
	subCmd.Flags().String("stop", "", "Subscription end: RFC3339 or ms (requires --start)")
	subCmd.Flags().String("client", "", "Client/session identity (server assigns one if empty)")
	subCmd.Flags().Int("limit", 0, "Stop after N notifications (0 = infinite)")
	return subCmd
}

// newNotifyCloseCommand constructs the `notify close` subcommand.
func newNotifyCloseCommand(baseURL BaseURLFunc) *cobra.Command {
	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "End a client's active subscription",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _ := cmd.Flags().GetString("client")
			if client == "" {
				return fmt.Errorf("--client is required")
			}
			b, _ := json.Marshal(map[string]string{"client": client})
			resp, err := http.Post(baseURL()+"/v1/subscriptions/close", "application/json", bytes.NewReader(b))
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode >= 300 {
				return httpError(resp)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		},
	}
	closeCmd.Flags().String("client", "", "Client/session identity")
	return closeCmd
}

// httpError drains the body and reports a useful error for non-2xx replies.
func httpError(resp *http.Response) error {
	var apiErr struct {
		AppTag  string `json:"error-app-tag"`
		Message string `json:"error-message"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(b, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("%s: %s (%s)", resp.Status, apiErr.Message, apiErr.AppTag)
	}
	return fmt.Errorf("http error: %s", resp.Status)
}
