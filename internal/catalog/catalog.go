package catalog

import (
	"fmt"
	"sort"

	"github.com/mcoot/draftroom/internal/model"
)

// DefaultTemplate is used when a create request names no template
const DefaultTemplate = "standard"

// Template is a named, read-only sequence of draft turns
type Template struct {
	Name        string
	Description string
	actions     []model.DraftAction
}

// Len returns the number of turns in the template
func (t Template) Len() int {
	return len(t.actions)
}

// At returns the turn at index i
func (t Template) At(i int) (model.DraftAction, bool) {
	if i < 0 || i >= len(t.actions) {
		return model.DraftAction{}, false
	}
	return t.actions[i], true
}

// Actions returns a copy of the turn sequence
func (t Template) Actions() []model.DraftAction {
	out := make([]model.DraftAction, len(t.actions))
	copy(out, t.actions)
	return out
}

func ban(team model.Team) model.DraftAction {
	return model.DraftAction{Type: model.ActionBan, Team: team, LockForPickingTeam: true, LockForOpponentTeam: true}
}

func pick(team model.Team, lockSelf, lockOpponent bool) model.DraftAction {
	return model.DraftAction{Type: model.ActionPick, Team: team, LockForPickingTeam: lockSelf, LockForOpponentTeam: lockOpponent}
}

func freePick(team model.Team) model.DraftAction {
	return pick(team, false, false)
}

var templates = map[string]Template{
	"standard": {
		Name:        "standard",
		Description: "Two rounds of ban/pick followed by four free picks",
		actions: []model.DraftAction{
			ban(model.TeamA),
			ban(model.TeamB),
			pick(model.TeamA, true, true),
			pick(model.TeamB, true, true),
			ban(model.TeamB),
			ban(model.TeamA),
			pick(model.TeamB, true, true),
			pick(model.TeamA, true, true),
			freePick(model.TeamB),
			freePick(model.TeamA),
			freePick(model.TeamB),
			freePick(model.TeamA),
		},
	},
	"short": {
		Name:        "short",
		Description: "One ban each, then one pick each; picks only restrict the picking team",
		actions: []model.DraftAction{
			ban(model.TeamA),
			ban(model.TeamB),
			pick(model.TeamB, true, false),
			pick(model.TeamA, true, false),
		},
	},
	"mirror": {
		Name:        "mirror",
		Description: "Six alternating picks; a team cannot repeat a class but mirrors are allowed",
		actions: []model.DraftAction{
			pick(model.TeamA, true, false),
			pick(model.TeamB, true, false),
			pick(model.TeamB, true, false),
			pick(model.TeamA, true, false),
			pick(model.TeamA, true, false),
			pick(model.TeamB, true, false),
		},
	},
}

// Get returns the named template
func Get(name string) (Template, error) {
	if name == "" {
		name = DefaultTemplate
	}
	t, ok := templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", model.ErrUnknownTemplate, name)
	}
	return t, nil
}

// Names returns all template names in sorted order
func Names() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every template sorted by name
func All() []Template {
	names := Names()
	out := make([]Template, 0, len(names))
	for _, name := range names {
		out = append(out, templates[name])
	}
	return out
}

// Configuration builds the fixed configuration for a new session led by leader
func (t Template) Configuration(leader model.UserID, providedByServer bool) model.DraftConfiguration {
	return model.DraftConfiguration{
		Template:         t.Name,
		LeaderID:         leader,
		ProvidedByServer: providedByServer,
		Actions:          t.Actions(),
	}
}
