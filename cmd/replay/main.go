package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rep-challenge-system/client"
	"rep-challenge-system/logging"
	"rep-challenge-system/pose"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "replay <recording.jsonl>",
	Short: "Count reps in a recorded landmark stream",
	Long: `Replay feeds a JSON-lines landmark recording (one {"landmarks": [...]}
object per frame) through the rep detector and prints the session result.

With --submit the count is posted to the challenge API as a progress delta.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.Flags().StringP("exercise", "e", string(pose.Pushup), "Exercise to track (pushup, squat, situp)")
	rootCmd.Flags().String("side", "left", "Body side to track (left, right)")
	rootCmd.Flags().Bool("submit", false, "Submit the count as progress")
	rootCmd.Flags().String("challenge", "", "Challenge id for --submit")
	rootCmd.Flags().String("api", "http://localhost:5200", "Challenge API base URL")
	rootCmd.Flags().String("user", os.Getenv("REPLAY_USER_ID"), "User id sent as X-User-ID")
	rootCmd.Flags().String("token", os.Getenv("GAME_SERVICE_TOKEN"), "Gateway bearer token")
	rootCmd.Flags().Bool("debug", false, "Enable debug logging")
}

func runReplay(cmd *cobra.Command, args []string) error {
	exercise, _ := cmd.Flags().GetString("exercise")
	sideName, _ := cmd.Flags().GetString("side")
	submit, _ := cmd.Flags().GetBool("submit")
	debug, _ := cmd.Flags().GetBool("debug")

	level := logging.InfoLevel
	if debug {
		level = logging.DebugLevel
	}
	logging.Init(logging.Config{Level: level, Output: os.Stderr})
	log := logging.WithComponent("replay")

	var side pose.Side
	switch sideName {
	case "left":
		side = pose.Left
	case "right":
		side = pose.Right
	default:
		return fmt.Errorf("unknown side %q", sideName)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := pose.NewSession(side)
	session.OnStop = func(r pose.Result) {
		log.Debug().Int("count", r.Count).Int("frames", r.Frames).Int("skipped", r.Skipped).Msg("session stopped")
	}
	res, err := session.Run(ctx, pose.Exercise(exercise), pose.NewReaderSource(f))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}

	if !submit {
		return nil
	}
	challengeID, _ := cmd.Flags().GetString("challenge")
	api, _ := cmd.Flags().GetString("api")
	user, _ := cmd.Flags().GetString("user")
	token, _ := cmd.Flags().GetString("token")
	if challengeID == "" || user == "" || token == "" {
		return fmt.Errorf("--submit needs --challenge, --user and --token")
	}

	resp, err := client.New(api, token, user).SubmitProgress(ctx, challengeID, res.Count, &res)
	if err != nil {
		return fmt.Errorf("submit progress: %w", err)
	}
	log.Info().Int("updated_reps", resp.UpdatedReps).Bool("completed", resp.Completed).Msg("progress submitted")
	return nil
}
