// Package console runs the intake conversation as a terminal REPL.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/ashureev/psicoflow/internal/intake"
)

const (
	channelConsole = "console"
	exitCommand    = "/sair"
	prompt         = "> "
)

// Messenger handles one inbound chat message for a user.
type Messenger interface {
	Handle(ctx context.Context, userID, text string) []intake.Reply
}

// REPL reads lines from in and prints the replies to out.
type REPL struct {
	messenger Messenger
	userID    string
	in        io.Reader
	out       io.Writer

	bot     *color.Color
	crisis  *color.Color
	choices *color.Color
	hint    *color.Color
}

// New creates a REPL for userID. Color is used only when out is a terminal.
func New(messenger Messenger, userID string, in io.Reader, out io.Writer) *REPL {
	r := &REPL{
		messenger: messenger,
		userID:    userID,
		in:        in,
		out:       out,
		bot:       color.New(color.FgCyan),
		crisis:    color.New(color.FgRed, color.Bold),
		choices:   color.New(color.FgYellow),
		hint:      color.New(color.Faint),
	}
	useColor := isTerminal(out)
	for _, c := range []*color.Color{r.bot, r.crisis, r.choices, r.hint} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return !color.NoColor && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Run loops until in is exhausted, the exit command is typed or ctx ends.
func (r *REPL) Run(ctx context.Context) error {
	ctx = intake.WithChannel(ctx, channelConsole)
	fmt.Fprintln(r.out, r.hint.Sprintf("Digite uma mensagem (ex.: oi). %s encerra o console.", exitCommand))

	scanner := bufio.NewScanner(r.in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, exitCommand) {
			return nil
		}
		for _, reply := range r.messenger.Handle(ctx, r.userID, line) {
			r.print(reply)
		}
	}
}

func (r *REPL) print(reply intake.Reply) {
	text := strings.ReplaceAll(reply.Text, "**", "")
	if reply.Crisis {
		fmt.Fprintln(r.out, r.crisis.Sprint(text))
	} else {
		fmt.Fprintln(r.out, r.bot.Sprint(text))
	}
	if len(reply.Choices) > 0 {
		labels := make([]string, len(reply.Choices))
		for i, c := range reply.Choices {
			labels[i] = "[" + c + "]"
		}
		fmt.Fprintln(r.out, r.choices.Sprint(strings.Join(labels, " ")))
	}
	fmt.Fprintln(r.out)
}
