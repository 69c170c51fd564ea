// Command connectivity checks that the payment providers can be reached
// from this host before the gateway is deployed.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"registration-gateway/internal/config"
	"registration-gateway/internal/gateway"
)

var defaultTargets = []string{
	"https://www.instamojo.com",
	"https://test.instamojo.com",
	"https://google.com",
}

var app = cli.Command{
	Name:  "connectivity",
	Usage: "Probe payment provider endpoints and report what the checkout flow would do",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
			Value: 5 * time.Second,
		},
		&cli.StringSliceFlag{
			Name:  "url",
			Usage: "Extra URL to probe (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "skip-defaults",
			Usage: "Probe only the configured API and --url targets",
		},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		_ = godotenv.Load()
		cfg := config.Load()

		targets := []string{}
		if !c.Bool("skip-defaults") {
			targets = append(targets, defaultTargets...)
		}
		targets = append(targets, apiEndpoint(cfg.Gateway))
		targets = append(targets, c.StringSlice("url")...)

		failed := report(ctx, os.Stdout, targets, c.Duration("timeout"))
		if failed > 0 {
			return cli.Exit(fmt.Sprintf("%d of %d endpoints unreachable", failed, len(targets)), 1)
		}
		return nil
	},
}

func apiEndpoint(g config.GatewayConfig) string {
	switch g.Provider {
	case config.ProviderRazorpay:
		return g.Razorpay.BaseURL
	case config.ProviderStripe:
		return g.Stripe.BaseURL
	default:
		return g.Instamojo.BaseURL
	}
}

func report(ctx context.Context, out io.Writer, targets []string, timeout time.Duration) int {
	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	warn := color.New(color.FgYellow)

	fmt.Fprintln(out, "Testing network connectivity...")
	fmt.Fprintln(out)

	failed := 0
	for _, target := range targets {
		res := gateway.Probe(ctx, target, timeout)
		if res.Reachable() {
			ok.Fprintf(out, "CONNECTED ")
			fmt.Fprintf(out, "%s (status %d, %s)\n", target, res.Status, res.Elapsed.Round(time.Millisecond))
			continue
		}

		failed++
		bad.Fprintf(out, "FAILED    ")
		fmt.Fprintf(out, "%s: %v\n", target, res.Err)
		if res.Recoverable() {
			warn.Fprintf(out, "          %s: checkout would answer with the fallback link\n", res.Code)
		} else {
			warn.Fprintln(out, "          checkout would answer with a server error")
		}
	}
	return failed
}

func main() {
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
