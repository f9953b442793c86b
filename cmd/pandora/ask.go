package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/urfave/cli/v3"
)

// runner is the part of pandora.Agent the interactive commands use.
type runner interface {
	Run(ctx context.Context, query string, options ...pandora.RunOption) (*pandora.Result, error)
}

var tickerFlag = &cli.StringFlag{
	Name:    "ticker",
	Aliases: []string{"t"},
	Usage:   "Ticker assumed when the question does not name one",
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer one question and exit",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			tickerFlag,
			&cli.BoolFlag{
				Name:  "steps",
				Usage: "Print every tool call with its result",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return goerr.New("question is required")
			}

			rt, ctx, err := newRuntime(ctx, cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.withAgent(ctx, pandora.WithToolRequestHook(toolCallPrinter(os.Stderr))); err != nil {
				return err
			}

			result, err := rt.agent.Run(ctx, query, runOptions(cmd.String("ticker"))...)
			if err != nil {
				return err
			}
			if cmd.Bool("steps") {
				printSteps(os.Stdout, result.Trace)
			}
			fmt.Fprintln(os.Stdout, result.Answer)
			return nil
		},
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive session; type exit to quit",
		Flags: []cli.Flag{tickerFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, ctx, err := newRuntime(ctx, cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.withAgent(ctx, pandora.WithToolRequestHook(toolCallPrinter(os.Stderr))); err != nil {
				return err
			}

			return runChat(ctx, rt.agent, os.Stdin, os.Stdout, cmd.String("ticker"))
		},
	}
}

func runOptions(ticker string) []pandora.RunOption {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil
	}
	return []pandora.RunOption{pandora.WithContextHint(ticker)}
}

// runChat answers one question per input line until EOF or "exit". Each question is an
// independent run; earlier turns are not carried over.
func runChat(ctx context.Context, agent runner, in io.Reader, out io.Writer, ticker string) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
			return nil
		default:
			result, err := agent.Run(ctx, line, runOptions(ticker)...)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n\n", result.Answer)
		}

		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
	}

	if err := scanner.Err(); err != nil {
		return goerr.Wrap(err, "failed to read input")
	}
	return nil
}

func toolCallPrinter(w io.Writer) pandora.ToolRequestHook {
	return func(ctx context.Context, call pandora.FunctionCall) {
		args, _ := json.Marshal(call.Arguments)
		fmt.Fprintf(w, "  [tool] %s %s\n", call.Name, args)
	}
}

func printSteps(w io.Writer, steps []pandora.Step) {
	for i, step := range steps {
		args, _ := json.Marshal(step.Args)
		fmt.Fprintf(w, "#%d %s %s\n%s\n\n", i+1, step.Tool, args, step.Result)
	}
}
