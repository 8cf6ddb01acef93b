// Command nanocl is the operator-facing CLI: a thin wrapper around
// nanocldclient for namespace and cargo management against a running
// nanocld.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nanocl-project/nanocld/internal/nanocldclient"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "nanocl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return usageError()
	}

	host := os.Getenv("NANOCL_HOST")
	if host == "" {
		host = "unix:///run/nanocl/nanocl.sock"
	}
	client := nanocldclient.New(host)
	ctx := context.Background()

	switch args[0] {
	case "namespace":
		return runNamespace(ctx, client, args[1:])
	case "cargo":
		return runCargo(ctx, client, args[1:])
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("usage: nanocl <namespace|cargo> <ls|create|rm|start|stop|restart|kill|history|reset> [args]")
}

func runNamespace(ctx context.Context, c *nanocldclient.Client, args []string) error {
	if len(args) < 1 {
		return usageError()
	}
	switch args[0] {
	case "ls":
		out, err := c.ListNamespaces(ctx)
		if err != nil {
			return err
		}
		return printJSON(out)
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: nanocl namespace create <name>")
		}
		out, err := c.CreateNamespace(ctx, args[1])
		if err != nil {
			return err
		}
		return printJSON(out)
	default:
		return usageError()
	}
}

func runCargo(ctx context.Context, c *nanocldclient.Client, args []string) error {
	if len(args) < 1 {
		return usageError()
	}
	switch args[0] {
	case "ls":
		namespace := ""
		if len(args) > 1 {
			namespace = args[1]
		}
		out, err := c.ListCargoes(ctx, namespace)
		if err != nil {
			return err
		}
		return printJSON(out)
	case "rm":
		if len(args) < 2 {
			return fmt.Errorf("usage: nanocl cargo rm <key>")
		}
		return c.DeleteCargo(ctx, args[1])
	case "start":
		if len(args) < 2 {
			return fmt.Errorf("usage: nanocl cargo start <key>")
		}
		return c.StartCargo(ctx, args[1])
	case "stop":
		if len(args) < 2 {
			return fmt.Errorf("usage: nanocl cargo stop <key>")
		}
		return c.StopCargo(ctx, args[1])
	case "restart":
		if len(args) < 2 {
			return fmt.Errorf("usage: nanocl cargo restart <key>")
		}
		return c.RestartCargo(ctx, args[1])
	case "kill":
		if len(args) < 2 {
			return fmt.Errorf("usage: nanocl cargo kill <key> [signal]")
		}
		signal := ""
		if len(args) > 2 {
			signal = args[2]
		}
		return c.KillCargo(ctx, args[1], signal)
	case "history":
		if len(args) < 2 {
			return fmt.Errorf("usage: nanocl cargo history <key>")
		}
		out, err := c.ListCargoHistories(ctx, args[1])
		if err != nil {
			return err
		}
		return printJSON(out)
	case "reset":
		if len(args) < 3 {
			return fmt.Errorf("usage: nanocl cargo reset <key> <history-id>")
		}
		out, err := c.ResetCargoHistory(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		return printJSON(out)
	default:
		return usageError()
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
