package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/example/tablebot/internal/conversation"
)

const channelName = "console"

type Bot interface {
	Turn(ctx context.Context, id, channel, text string) ([]conversation.Message, error)
	Restart(ctx context.Context, id, channel string) ([]conversation.Message, error)
}

// Run drives a single conversation over in/out, one line per utterance.
// "/restart" starts over; EOF or "/quit" ends the session.
func Run(ctx context.Context, bot Bot, id string, in io.Reader, out io.Writer) error {
	msgs, err := bot.Turn(ctx, id, channelName, "")
	if err != nil {
		return err
	}
	writeMessages(out, msgs)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "/quit", "/exit":
			return nil
		case "/restart":
			msgs, err = bot.Restart(ctx, id, channelName)
		default:
			msgs, err = bot.Turn(ctx, id, channelName, line)
		}
		if err != nil {
			return err
		}
		writeMessages(out, msgs)
	}
}

func writeMessages(out io.Writer, msgs []conversation.Message) {
	for _, m := range msgs {
		fmt.Fprintln(out, m.Text)
		for i, c := range m.Choices {
			fmt.Fprintf(out, "  %d) %s\n", i+1, c)
		}
	}
}
