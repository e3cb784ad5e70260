package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	secretservice "github.com/spylab/llm-ctf/app/modules/secret/application"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/spylab/llm-ctf/internal/timeparse"
	"github.com/urfave/cli/v2"
)

func teamCommand() *cli.Command {
	return &cli.Command{
		Name:  "team",
		Usage: "manage teams",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "create a team and its budget",
				ArgsUsage: "<name>",
				Flags:     providerAmountFlags(),
				Action: withEnv(func(c *cli.Context, e *env) error {
					team, err := e.services.Submissions.RegisterTeam(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					if _, err := e.services.Budgets.Create(c.Context, team.ID, providerAmounts(c)); err != nil {
						return err
					}
					fmt.Printf("Created team %s (%s)\n", team.Name, team.ID)
					return nil
				}),
			},
		},
	}
}

func budgetCommand() *cli.Command {
	return &cli.Command{
		Name:  "budget",
		Usage: "manage team budgets",
		Subcommands: []*cli.Command{
			{
				Name:      "increase",
				Usage:     "raise a team's limits by the given amounts",
				ArgsUsage: "<team name>",
				Flags:     providerAmountFlags(),
				Action: withEnv(func(c *cli.Context, e *env) error {
					team, err := e.services.Submissions.GetTeamByName(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					budget, err := e.services.Budgets.Increase(c.Context, team.ID, providerAmounts(c))
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "PROVIDER\tCONSUMED\tLIMIT\tREMAINING")
					for _, p := range sharedtypes.Providers {
						pb := budget.Providers[p]
						fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\n", p, pb.Consumed, pb.Limit, pb.Remaining())
					}
					return w.Flush()
				}),
			},
		},
	}
}

func submissionCommand() *cli.Command {
	idFlag := &cli.StringFlag{Name: "id", Required: true, Usage: "submission id"}
	return &cli.Command{
		Name:  "submission",
		Usage: "manage defense submissions",
		Subcommands: []*cli.Command{
			{
				Name:  "register",
				Usage: "enter a team's defense against a model",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "team", Required: true, Usage: "team name"},
					&cli.StringFlag{Name: "model", Required: true, Usage: "chat model, e.g. openai/gpt-3.5-turbo-1106"},
					&cli.StringFlag{Name: "defense", Usage: "defense id (generated when empty)"},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					team, err := e.services.Submissions.GetTeamByName(c.Context, c.String("team"))
					if err != nil {
						return err
					}
					defenseID := uuid.New()
					if v := c.String("defense"); v != "" {
						if defenseID, err = uuid.Parse(v); err != nil {
							return fmt.Errorf("invalid defense id: %w", err)
						}
					}
					sub, err := e.services.Submissions.RegisterSubmission(c.Context, team.ID, defenseID, sharedtypes.ChatModel(c.String("model")))
					if err != nil {
						return err
					}
					fmt.Printf("Registered submission %s (%s, %s)\n", sub.ID, sub.Model, sub.Provider)
					return nil
				}),
			},
			{
				Name:  "activate",
				Flags: []cli.Flag{idFlag},
				Action: withEnv(func(c *cli.Context, e *env) error {
					return setActive(c, e, true)
				}),
			},
			{
				Name:  "deactivate",
				Flags: []cli.Flag{idFlag},
				Action: withEnv(func(c *cli.Context, e *env) error {
					return setActive(c, e, false)
				}),
			},
			{
				Name:  "list",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "active", Usage: "only active submissions"}},
				Action: withEnv(func(c *cli.Context, e *env) error {
					subs, err := e.services.Submissions.ListSubmissions(c.Context, c.Bool("active"))
					if err != nil {
						return err
					}
					return printSubmissions(subs)
				}),
			},
		},
	}
}

func evalSecretsCommand() *cli.Command {
	return &cli.Command{
		Name:  "eval-secrets",
		Usage: "manage evaluation secrets",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "fill every active submission up to its evaluation secret count",
				Action: withEnv(func(c *cli.Context, e *env) error {
					n, err := e.services.Secrets.CreateEvaluationSecrets(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Created %d evaluation secrets\n", n)
					return nil
				}),
			},
			{
				Name:  "remove",
				Usage: "delete every evaluation secret and its guesses",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "confirm", Usage: fmt.Sprintf("must be %q", secretservice.ConfirmRemoveEvaluationSecrets)},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					n, err := e.services.Secrets.RemoveEvaluationSecrets(c.Context, c.String("confirm"))
					if err != nil {
						return err
					}
					fmt.Printf("Removed %d evaluation secrets\n", n)
					return nil
				}),
			},
		},
	}
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "inspect and freeze the leaderboard",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the current leaderboard",
				Action: withEnv(func(c *cli.Context, e *env) error {
					board, err := e.services.Scoring.ScoreLeaderboard(c.Context)
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintf(w, "SUBMISSION\tSCORE\tATTACKERS\t(source: %s)\n", board.Source)
					for _, s := range board.Scores {
						fmt.Fprintf(w, "%s\t%.1f\t%d\n", s.Name, s.Value, len(s.Attackers))
					}
					for _, s := range board.Skipped {
						fmt.Fprintf(w, "%s\tskipped\t%s\n", s.Name, s.Reason)
					}
					return w.Flush()
				}),
			},
			{
				Name:  "snapshot",
				Usage: "compute the leaderboard now and store it as the final scores",
				Action: withEnv(func(c *cli.Context, e *env) error {
					board, err := e.services.Scoring.CaptureSnapshot(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Stored %d submission scores in %s\n", len(board.Scores), e.cfg.Competition.FinalScoresPath)
					return nil
				}),
			},
			{
				Name:  "schedule-snapshot",
				Usage: "queue a snapshot job, e.g. --at \"tomorrow at 6pm\" --tz CET",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "at", Required: true},
					&cli.StringFlag{Name: "tz", Value: "UTC"},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					at, err := timeparse.NewParser().ParseFuture(c.String("at"), c.String("tz"), time.Now())
					if err != nil {
						return err
					}
					queue, err := e.insertOnlyQueue(c.Context)
					if err != nil {
						return err
					}
					defer queue.Close()

					id, err := queue.ScheduleSnapshot(c.Context, at)
					if err != nil {
						return err
					}
					fmt.Printf("Scheduled snapshot job %d for %s\n", id, at.Format(time.RFC3339))
					return nil
				}),
			},
			{
				Name:  "cancel-snapshots",
				Usage: "cancel every pending snapshot job",
				Action: withEnv(func(c *cli.Context, e *env) error {
					queue, err := e.insertOnlyQueue(c.Context)
					if err != nil {
						return err
					}
					defer queue.Close()

					n, err := queue.CancelSnapshots(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Cancelled %d snapshot jobs\n", n)
					return nil
				}),
			},
			{
				Name:  "export",
				Usage: "write the leaderboard and standings as an xlsx workbook",
				Flags: []cli.Flag{&cli.StringFlag{Name: "out", Value: "leaderboard.xlsx"}},
				Action: withEnv(func(c *cli.Context, e *env) error {
					f, err := os.Create(c.String("out"))
					if err != nil {
						return err
					}
					if err := e.services.Scoring.ExportWorkbook(c.Context, f); err != nil {
						f.Close()
						return err
					}
					return f.Close()
				}),
			},
			{
				Name:  "chart",
				Usage: "render the attacker standings as a PNG",
				Flags: []cli.Flag{&cli.StringFlag{Name: "out", Value: "standings.png"}},
				Action: withEnv(func(c *cli.Context, e *env) error {
					png, err := e.services.Scoring.RenderChart(c.Context)
					if err != nil {
						return err
					}
					return os.WriteFile(c.String("out"), png, 0o644)
				}),
			},
		},
	}
}

func providerAmountFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(sharedtypes.Providers))
	for _, p := range sharedtypes.Providers {
		flags = append(flags, &cli.Float64Flag{Name: p.String(), Usage: fmt.Sprintf("%s budget amount", p)})
	}
	return flags
}

func providerAmounts(c *cli.Context) map[sharedtypes.Provider]float64 {
	out := map[sharedtypes.Provider]float64{}
	for _, p := range sharedtypes.Providers {
		if c.IsSet(p.String()) {
			out[p] = c.Float64(p.String())
		}
	}
	return out
}

func setActive(c *cli.Context, e *env, active bool) error {
	id, err := uuid.Parse(c.String("id"))
	if err != nil {
		return fmt.Errorf("invalid submission id: %w", err)
	}
	return e.services.Submissions.SetActive(c.Context, id, active)
}

func printSubmissions(subs []submissiondb.Submission) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTEAM\tMODEL\tACTIVE")
	for _, s := range subs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", s.ID, s.TeamID, s.Model, s.IsActive)
	}
	return w.Flush()
}
