package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pulse/internal/domain/model"
)

type resolveOptions struct {
	user      string
	teams     []string
	leagues   []string
	at        string
	audioPath string
	asJSON    bool
}

func newResolveCommand(cctx *commandContext) *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve one pulse request and print the match",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			req, err := opts.request()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			if err := svc.Start(ctx); err != nil {
				return err
			}
			// Stop drains the persistence queue before exiting.
			defer svc.Stop()

			res, err := svc.Resolve(ctx, req)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, opts.asJSON)
		},
	}

	cmd.Flags().StringVar(&opts.user, "user", "", "User id recorded with the match")
	cmd.Flags().StringSliceVar(&opts.teams, "team", nil, "Favorite team (repeatable)")
	cmd.Flags().StringSliceVar(&opts.leagues, "league", nil, "League to search (repeatable; defaults from config)")
	cmd.Flags().StringVar(&opts.at, "at", "", "Request time in RFC3339 (defaults to now)")
	cmd.Flags().StringVar(&opts.audioPath, "audio", "", "Path to an audio clip for ACR")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func (o resolveOptions) request() (model.PulseRequest, error) {
	leagues, err := parseLeagues(o.leagues)
	if err != nil {
		return model.PulseRequest{}, err
	}
	opts := []model.RequestOption{
		model.WithUser(strings.TrimSpace(o.user)),
		model.WithFavoriteTeams(o.teams...),
		model.WithFavoriteLeagues(leagues...),
	}
	if o.at != "" {
		ts, err := time.Parse(time.RFC3339, o.at)
		if err != nil {
			return model.PulseRequest{}, fmt.Errorf("--at must be RFC3339: %w", err)
		}
		opts = append(opts, model.WithTimestamp(ts))
	}
	if o.audioPath != "" {
		audio, err := os.ReadFile(o.audioPath)
		if err != nil {
			return model.PulseRequest{}, fmt.Errorf("reading audio clip: %w", err)
		}
		opts = append(opts, model.WithAudio(audio))
	}
	return model.NewPulseRequest(opts...), nil
}

func printResult(w io.Writer, res *model.PulseResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"matched": res != nil, "result": res})
	}
	if res == nil {
		_, err := fmt.Fprintln(w, "No match.")
		return err
	}

	g := res.Game
	rows := [][]string{
		{"Game", res.GameID},
		{"League", string(g.League)},
		{"Matchup", fmt.Sprintf("%s vs %s", g.HomeTeam.Name, g.AwayTeam.Name)},
		{"Status", string(g.Status)},
		{"Score", formatScore(g.Score)},
		{"Confidence", strconv.FormatFloat(res.Confidence, 'f', 2, 64)},
		{"Source", string(res.Source)},
		{"Reason", res.MatchReason},
	}
	_, err := fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, nil))
	return err
}

func formatScore(s *model.Score) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}
