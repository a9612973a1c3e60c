// Package console runs the interactive terminal chat.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"career-chat/internal/chat"
)

const (
	banner  = "💬 Career counselor chat (type 'exit' to quit)"
	prompt  = "You: "
	goodbye = "👋 Goodbye!"
)

// Run reads lines from in and answers each one through svc until "exit", EOF
// or ctx is cancelled. Upstream failures are printed and the loop goes on.
func Run(ctx context.Context, svc *chat.Service, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, banner)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !sc.Scan() {
			fmt.Fprintln(out)
			fmt.Fprintln(out, goodbye)
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(sc.Text())
		if strings.EqualFold(line, "exit") {
			fmt.Fprintln(out, goodbye)
			return nil
		}
		if line == "" {
			continue
		}

		reply, err := svc.Send(ctx, sessionID, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "Counselor: %s\n", reply)
	}
}
