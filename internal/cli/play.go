package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"voice-quiz-service/internal/config"
	"voice-quiz-service/internal/domain"
)

// NewPlayCmd runs the quiz in the terminal, one line per turn.
func NewPlayCmd(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the quiz in the terminal",
		Long: "Play the quiz in the terminal. Type a letter, true or false to answer;\n" +
			"repeat, another, results, help and stop work like the voice intents.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			// keep logs out of the conversation
			config.InitLogger("warn", cfg.Log.Format)

			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if userID == "" {
				userID = "cli-" + uuid.NewString()
			}
			return playLoop(ctx, rt.service, userID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to play as (default: a new anonymous id)")
	return cmd
}

// playLoop drives turns from line input until stop or EOF.
func playLoop(ctx context.Context, service turnRunner, userID string, in io.Reader, out io.Writer) error {
	reply, err := service.HandleTurn(ctx, domain.TurnRequest{UserID: userID, Intent: domain.IntentLaunch})
	if err != nil {
		return err
	}
	printReply(out, reply)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		req := lineToTurn(userID, line)
		reply, err = service.HandleTurn(ctx, req)
		if err != nil {
			return err
		}
		printReply(out, reply)
		if req.Intent == domain.IntentStop {
			return nil
		}
	}
}

type turnRunner interface {
	HandleTurn(ctx context.Context, req domain.TurnRequest) (domain.Reply, error)
}

func lineToTurn(userID, line string) domain.TurnRequest {
	if intent, ok := domain.ParseIntent(line); ok && intent != domain.IntentAnswer {
		return domain.TurnRequest{UserID: userID, Intent: intent}
	}
	return domain.TurnRequest{UserID: userID, Intent: domain.IntentAnswer, Answer: line}
}

func printReply(out io.Writer, reply domain.Reply) {
	for _, line := range reply.SpeechLines {
		fmt.Fprintln(out, line)
	}
	if reply.CardBody != "" {
		fmt.Fprintf(out, "\n--- %s ---\n%s\n\n", reply.CardTitle, reply.CardBody)
	}
}
