// Package client provides the `nc-notifyd` command-line client.
//
// The CLI talks to the notification server's HTTP endpoints to publish
// events, inspect streams, and follow subscriptions from a terminal. It is
// primarily intended for developers and operators.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it
// defaults to http://127.0.0.1:8080 and can be overridden with the
// NCNOTIF_HTTP environment variable.
//
// Usage
//
//	nc-notifyd notify send --stream NETCONF --event link-down --data '{"if":"eth0"}'
//
//	nc-notifyd stream list
//	nc-notifyd stream info --name NETCONF
//
//	# Follow live notifications
//	nc-notifyd notify subscribe --stream NETCONF
//
//	# Replay from an absolute time (RFC3339) then go live
//	nc-notifyd notify subscribe --stream NETCONF --start 2026-08-30T12:00:00Z
//	# Bounded window, with a server-side CEL filter
//	nc-notifyd notify subscribe --start 1726833600000 --stop 1726837200000 \
//	    --filter 'name.startsWith("alarm")'
//
//	# End another session's subscription
//	nc-notifyd notify close --client SESSION_ID
//
// Notes
//
//   - subscribe holds an SSE connection open; events print as JSON lines.
//     Replay and completion markers appear as {"marker": ...} lines.
//   - --start and --stop accept RFC3339 timestamps or unix epoch ms.
//   - one subscription per client: pass --client to name the session,
//     otherwise the server assigns one and prints it.
package client
