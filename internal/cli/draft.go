package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func draftPath(id string, parts ...string) string {
	p := "/api/v1/drafts/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List draft templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TemplateList
			if err := client.Get("/api/v1/templates", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

// rosterMember is the JSON shape of a provided roster entry
type rosterMember struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Discriminator string `json:"discriminator,omitempty"`
}

// parseRoster parses entries of the form id[:name[#discriminator]]
func parseRoster(entries []string) ([]rosterMember, error) {
	out := make([]rosterMember, 0, len(entries))
	for _, entry := range entries {
		id, rest, _ := strings.Cut(entry, ":")
		if id == "" {
			return nil, fmt.Errorf("invalid roster entry %q", entry)
		}
		name, disc, _ := strings.Cut(rest, "#")
		if name == "" {
			name = id
		}
		out = append(out, rosterMember{ID: id, DisplayName: name, Discriminator: disc})
	}
	return out, nil
}

func newCreateCmd() *cobra.Command {
	var (
		template string
		teamA    []string
		teamB    []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft",
		Long: `Create a draft from a template.

Without rosters an ad-hoc draft is created with you as leader. Passing
--team-a or --team-b creates a tournament-provided draft with fixed
rosters, which requires the organizer role.

Roster entries take the form id[:name[#discriminator]].`,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{}
			if template != "" {
				body["template"] = template
			}
			if cmd.Flags().Changed("team-a") || cmd.Flags().Changed("team-b") {
				a, err := parseRoster(teamA)
				if err != nil {
					return err
				}
				b, err := parseRoster(teamB)
				if err != nil {
					return err
				}
				body["team_a"] = a
				body["team_b"] = b
			}

			var result Draft
			if err := client.Post("/api/v1/drafts", body, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&template, "template", "", "Template name (default: server default)")
	cmd.Flags().StringSliceVar(&teamA, "team-a", nil, "Team A roster for a provided draft")
	cmd.Flags().StringSliceVar(&teamB, "team-b", nil, "Team B roster for a provided draft")

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <draft-id>",
		Short: "Show a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Draft
			if err := client.Get(draftPath(args[0]), &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newTurnCmd(use, actionType string) *cobra.Command {
	var cursor int

	cmd := &cobra.Command{
		Use:   use + " <draft-id> <team> <breed>",
		Short: "Submit a " + strings.ToLower(actionType) + " for the current turn",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			breed, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid breed %q: %w", args[2], err)
			}
			body := map[string]any{
				"type":  actionType,
				"team":  strings.ToUpper(args[1]),
				"breed": breed,
			}
			if cmd.Flags().Changed("cursor") {
				body["cursor"] = cursor
			}

			var result ActionResult
			if err := client.Post(draftPath(args[0], "actions"), body, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&cursor, "cursor", 0, "Only apply if the draft is at this turn")

	return cmd
}

func newAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <draft-id> <user-id> <team>",
		Short: "Assign a user to a team",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := draftPath(args[0], "teams", strings.ToUpper(args[2]), "members", args[1])
			if err := client.Put(path, nil, nil); err != nil {
				return err
			}
			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Assigned %s to team %s", args[1], strings.ToUpper(args[2])))
			return nil
		},
	}
}

func newUnassignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <draft-id> <user-id>",
		Short: "Remove a user from their team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(draftPath(args[0], "members", args[1], "team")); err != nil {
				return err
			}
			NewOutput(cfg.Output).PrintMessage("Unassigned " + args[1])
			return nil
		},
	}
}

func newReadyCmd() *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "ready <draft-id> <team>",
		Short: "Mark a team ready (or not ready with --off)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			team := strings.ToUpper(args[1])
			body := map[string]bool{"ready": !off}
			if err := client.Put(draftPath(args[0], "teams", team, "ready"), body, nil); err != nil {
				return err
			}
			state := "ready"
			if off {
				state = "not ready"
			}
			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Team %s is %s", team, state))
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Clear the team's readiness")

	return cmd
}
