package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Draft:
		o.printDraft(v)
	case TemplateList:
		o.printTemplates(v)
	case ActionResult:
		o.printActionResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Action response type (matches API)
type Action struct {
	Type                string `json:"type"`
	Team                string `json:"team"`
	Breed               int    `json:"breed,omitempty"`
	LockForPickingTeam  bool   `json:"lock_for_picking_team"`
	LockForOpponentTeam bool   `json:"lock_for_opponent_team"`
}

// User response type
type User struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Discriminator string `json:"discriminator,omitempty"`
	Present       bool   `json:"present"`
}

// Draft is the snapshot returned for a draft
type Draft struct {
	ID               string   `json:"id"`
	Template         string   `json:"template"`
	LeaderID         string   `json:"leader_id"`
	ProvidedByServer bool     `json:"provided_by_server"`
	Phase            string   `json:"phase"`
	Cursor           int      `json:"cursor"`
	Total            int      `json:"total"`
	Current          *Action  `json:"current,omitempty"`
	History          []Action `json:"history"`
	Users            []User   `json:"users"`
	TeamA            []User   `json:"team_a"`
	TeamB            []User   `json:"team_b"`
	TeamAReady       bool     `json:"team_a_ready"`
	TeamBReady       bool     `json:"team_b_ready"`
	LockedForTeamA   []int    `json:"locked_for_team_a"`
	LockedForTeamB   []int    `json:"locked_for_team_b"`
	PickedByTeamA    []int    `json:"picked_by_team_a"`
	PickedByTeamB    []int    `json:"picked_by_team_b"`
}

// Template response type
type Template struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Actions     []Action `json:"actions"`
}

// TemplateList response type
type TemplateList struct {
	Templates []Template `json:"templates"`
}

// ActionResult response type
type ActionResult struct {
	Action Action `json:"action"`
}

// HealthResult response type
type HealthResult struct {
	Status       string `json:"status"`
	LiveSessions int    `json:"live_sessions"`
}

func (o *Output) printDraft(d Draft) {
	kind := "ad-hoc"
	if d.ProvidedByServer {
		kind = "provided"
	}
	fmt.Fprintf(o.w, "Draft: %s (%s, %s)\n", d.ID, d.Template, kind)
	fmt.Fprintf(o.w, "Phase: %s\n", d.Phase)
	fmt.Fprintf(o.w, "Turn: %d/%d\n", d.Cursor, d.Total)
	if d.Current != nil {
		fmt.Fprintf(o.w, "Next: %s by team %s\n", d.Current.Type, d.Current.Team)
	}

	o.printTeam("A", d.TeamA, d.TeamAReady, d.LeaderID)
	o.printTeam("B", d.TeamB, d.TeamBReady, d.LeaderID)

	var unassigned []string
	for _, u := range d.Users {
		if !containsUser(d.TeamA, u.ID) && !containsUser(d.TeamB, u.ID) {
			unassigned = append(unassigned, userLabel(u, d.LeaderID))
		}
	}
	if len(unassigned) > 0 {
		fmt.Fprintf(o.w, "Unassigned: %s\n", strings.Join(unassigned, ", "))
	}

	if len(d.History) > 0 {
		fmt.Fprintln(o.w, "\nHistory:")
		for i, a := range d.History {
			fmt.Fprintf(o.w, "  %2d. %s\n", i+1, formatAction(a))
		}
	}
	if len(d.PickedByTeamA)+len(d.PickedByTeamB) > 0 {
		fmt.Fprintf(o.w, "\nPicked A: %s\n", joinInts(d.PickedByTeamA))
		fmt.Fprintf(o.w, "Picked B: %s\n", joinInts(d.PickedByTeamB))
	}
	if len(d.LockedForTeamA)+len(d.LockedForTeamB) > 0 {
		fmt.Fprintf(o.w, "Locked for A: %s\n", joinInts(d.LockedForTeamA))
		fmt.Fprintf(o.w, "Locked for B: %s\n", joinInts(d.LockedForTeamB))
	}
}

func (o *Output) printTeam(name string, members []User, ready bool, leader string) {
	readyStr := ""
	if ready {
		readyStr = " [ready]"
	}
	fmt.Fprintf(o.w, "Team %s (%d)%s:\n", name, len(members), readyStr)
	for _, m := range members {
		fmt.Fprintf(o.w, "  - %s\n", userLabel(m, leader))
	}
}

func (o *Output) printTemplates(l TemplateList) {
	for _, t := range l.Templates {
		fmt.Fprintf(o.w, "%s (%d turns): %s\n", t.Name, len(t.Actions), t.Description)
		for i, a := range t.Actions {
			fmt.Fprintf(o.w, "  %2d. %s\n", i+1, formatAction(a))
		}
	}
}

func (o *Output) printActionResult(r ActionResult) {
	fmt.Fprintf(o.w, "Recorded: %s\n", formatAction(r.Action))
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Live drafts: %d\n", h.LiveSessions)
}

func formatAction(a Action) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", a.Team, a.Type)
	if a.Breed != 0 {
		fmt.Fprintf(&b, " %d", a.Breed)
	}
	var locks []string
	if a.LockForPickingTeam {
		locks = append(locks, "self")
	}
	if a.LockForOpponentTeam {
		locks = append(locks, "opponent")
	}
	if len(locks) > 0 {
		fmt.Fprintf(&b, " (locks %s)", strings.Join(locks, "+"))
	}
	return b.String()
}

func userLabel(u User, leader string) string {
	label := u.DisplayName
	if label == "" {
		label = u.ID
	}
	if u.Discriminator != "" {
		label += "#" + u.Discriminator
	}
	if u.ID == leader {
		label += " [leader]"
	}
	if !u.Present {
		label += " (away)"
	}
	return label
}

func containsUser(users []User, id string) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func joinInts(xs []int) string {
	if len(xs) == 0 {
		return "-"
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}
