package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/modules/frontier"
	"github.com/aristath/tickerdash/internal/session"
)

type addCmd struct {
	opts *Options
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "search tickers and add them to the frontier" }
func (*addCmd) Usage() string {
	return `tickerctl add <TICKER>...

  Fetches each ticker from the server, merges its data into the session and
  caches its risk/return point when the server reports one.
`
}
func (*addCmd) SetFlags(*flag.FlagSet) {}

func (p *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "add requires at least one ticker")
		return subcommands.ExitUsageError
	}

	return p.opts.withSession(ctx, func(c *session.Controller) error {
		var failed []string
		for _, raw := range f.Args() {
			result, err := c.AddTicker(ctx, raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", raw, err)
				failed = append(failed, raw)
				continue
			}
			status := "already on the chart"
			if result.Cached {
				status = "added to the chart"
			} else if _, ok := c.Data().Frontier(result.Ticker); !ok {
				status = "no frontier data"
			}
			name := result.Name
			if name == "" {
				name = result.Ticker
			}
			fmt.Fprintf(p.opts.Out, "%s (%s): %s\n", result.Ticker, name, status)
		}
		if len(failed) > 0 {
			return fmt.Errorf("failed to add %s", strings.Join(failed, ", "))
		}
		return nil
	})
}

type removeCmd struct {
	opts *Options
}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove tickers from the frontier" }
func (*removeCmd) Usage() string {
	return `tickerctl remove <TICKER>...
`
}
func (*removeCmd) SetFlags(*flag.FlagSet) {}

func (p *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "remove requires at least one ticker")
		return subcommands.ExitUsageError
	}

	return p.opts.withSession(ctx, func(c *session.Controller) error {
		for _, raw := range f.Args() {
			ticker := domain.NormalizeTicker(raw)
			if c.RemovePoint(ticker) {
				fmt.Fprintf(p.opts.Out, "%s: removed\n", ticker)
			} else {
				fmt.Fprintf(p.opts.Out, "%s: not on the chart\n", ticker)
			}
		}
		return nil
	})
}

type clearCmd struct {
	opts *Options
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "remove every ticker from the frontier" }
func (*clearCmd) Usage() string {
	return `tickerctl clear
`
}
func (*clearCmd) SetFlags(*flag.FlagSet) {}

func (p *clearCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return p.opts.withSession(ctx, func(c *session.Controller) error {
		n := len(c.Points())
		c.ClearPoints()
		fmt.Fprintf(p.opts.Out, "cleared %d ticker(s)\n", n)
		return nil
	})
}

type listCmd struct {
	opts   *Options
	asJSON bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list the cached frontier points" }
func (*listCmd) Usage() string {
	return `tickerctl list [-json]
`
}

func (p *listCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.asJSON, "json", false, "Print chart points as JSON.")
}

func (p *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return p.opts.withSession(ctx, func(c *session.Controller) error {
		if p.asJSON {
			return p.opts.printJSON(c.ChartPoints())
		}

		points := c.Points()
		if len(points) == 0 {
			fmt.Fprintln(p.opts.Out, "no tickers on the chart")
			return nil
		}
		names := c.Data().Names
		w := tabwriter.NewWriter(p.opts.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TICKER\tNAME\tRISK\tCAGR\tCOLOR")
		for _, pt := range points {
			fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%s\n", pt.Ticker, names[pt.Ticker], pt.X, pt.Y, pt.Color)
		}
		return w.Flush()
	})
}

type frontierCmd struct {
	opts    *Options
	capType string
}

func (*frontierCmd) Name() string     { return "frontier" }
func (*frontierCmd) Synopsis() string { return "print the efficient frontier chart data as JSON" }
func (*frontierCmd) Usage() string {
	return `tickerctl frontier [-cap large_cap|mid_cap|small_cap]
`
}

func (p *frontierCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.capType, "cap", string(frontier.LargeCap), "Market cap profile of the curve.")
}

func (p *frontierCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return p.opts.withSession(ctx, func(c *session.Controller) error {
		return p.opts.printJSON(c.Frontier(frontier.ParseCapType(p.capType)))
	})
}

type tableCmd struct {
	opts   *Options
	asJSON bool
}

func (*tableCmd) Name() string     { return "table" }
func (*tableCmd) Synopsis() string { return "print a ticker's metrics against market averages" }
func (*tableCmd) Usage() string {
	return `tickerctl table [-json] <TICKER>
`
}

func (p *tableCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.asJSON, "json", false, "Print rows as JSON.")
}

func (p *tableCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "table requires exactly one ticker")
		return subcommands.ExitUsageError
	}

	return p.opts.withSession(ctx, func(c *session.Controller) error {
		rows, err := c.MetricsTable(f.Arg(0))
		if err != nil {
			return err
		}
		if p.asJSON {
			return p.opts.printJSON(rows)
		}

		w := tabwriter.NewWriter(p.opts.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "METRIC\tVALUE\tMARKET\tRATING")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Metric, row.ValueDisplay, row.AverageDisplay, row.Rating)
		}
		return w.Flush()
	})
}

type riskCmd struct {
	opts *Options
}

func (*riskCmd) Name() string     { return "risk" }
func (*riskCmd) Synopsis() string { return "print the risk bar chart data for a ticker as JSON" }
func (*riskCmd) Usage() string {
	return `tickerctl risk <TICKER>
`
}
func (*riskCmd) SetFlags(*flag.FlagSet) {}

func (p *riskCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "risk requires exactly one ticker")
		return subcommands.ExitUsageError
	}

	return p.opts.withSession(ctx, func(c *session.Controller) error {
		chart, err := c.RiskBar(f.Arg(0))
		if err != nil {
			return err
		}
		return p.opts.printJSON(chart)
	})
}

type mctrCmd struct {
	opts *Options
}

func (*mctrCmd) Name() string     { return "mctr" }
func (*mctrCmd) Synopsis() string { return "print the MCTR pie chart data for a ticker as JSON" }
func (*mctrCmd) Usage() string {
	return `tickerctl mctr <TICKER>
`
}
func (*mctrCmd) SetFlags(*flag.FlagSet) {}

func (p *mctrCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "mctr requires exactly one ticker")
		return subcommands.ExitUsageError
	}

	return p.opts.withSession(ctx, func(c *session.Controller) error {
		chart, err := c.MCTRPie(f.Arg(0))
		if err != nil {
			return err
		}
		return p.opts.printJSON(chart)
	})
}

type pingCmd struct {
	opts *Options
}

func (*pingCmd) Name() string     { return "ping" }
func (*pingCmd) Synopsis() string { return "check that the server and its upstream are reachable" }
func (*pingCmd) Usage() string {
	return `tickerctl ping
`
}
func (*pingCmd) SetFlags(*flag.FlagSet) {}

func (p *pingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	resp, err := p.opts.client(p.opts.logger()).Ping(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if !resp.Success {
		fmt.Fprintln(os.Stderr, "server reported failure")
		return subcommands.ExitFailure
	}
	fmt.Fprintf(p.opts.Out, "ok (upstream: %s)\n", resp.Upstream)
	return subcommands.ExitSuccess
}
