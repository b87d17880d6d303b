package cli

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

var (
	chatUser    string
	chatSession string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the companion from the terminal",
	Long: `Reads one message per line from stdin and prints the companion's reply.
Type /quit to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "local-user", "user id the conversation belongs to")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session id (defaults to session_<user>)")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	runner, err := buildRunner(ctx, cfg, s)
	if err != nil {
		return err
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	out := cmd.OutOrStdout()
	if interactive {
		color.New(color.FgCyan, color.Bold).Fprintf(out, "Companion ready for %s. Type /quit to exit.\n", chatUser)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if interactive {
			color.New(color.FgGreen).Fprint(out, "you> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		res := runner.ProcessMessage(ctx, chatUser, line, chatSession)
		printResult(out, res)
	}
	return scanner.Err()
}

func printResult(w io.Writer, res model.Result) {
	color.New(color.FgCyan).Fprintf(w, "companion> %s\n", res.Response)
	if res.Flow != nil {
		color.New(color.FgHiBlack).Fprintf(w, "  [%s flow %s, step %d/%d]\n",
			res.Flow.Type, res.Flow.Status, min(res.Flow.Step+1, res.Flow.Total), res.Flow.Total)
	}
	if res.Err != nil {
		c := color.New(color.FgRed)
		if res.Retryable {
			c = color.New(color.FgYellow)
		}
		c.Fprintf(w, "  [error: %v]\n", res.Err)
	}
}
