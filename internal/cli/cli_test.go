package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

type CLISuite struct {
	suite.Suite
	server   *httptest.Server
	requests []recordedRequest
	status   int
	reply    string
	tokenDir string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.requests = nil
	s.status = http.StatusOK
	s.reply = `{}`
	s.tokenDir = s.T().TempDir()
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Auth: r.Header.Get("Authorization")}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		s.requests = append(s.requests, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(s.reply))
	}))
}

func (s *CLISuite) TearDownTest() {
	s.server.Close()
}

func (s *CLISuite) run(args ...string) error {
	cmd := NewRootCmd()
	base := []string{"--server", s.server.URL, "--token", "tok", "--token-file", filepath.Join(s.tokenDir, "token"), "-o", "json"}
	cmd.SetArgs(append(base, args...))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func (s *CLISuite) lastRequest() recordedRequest {
	s.Require().NotEmpty(s.requests)
	return s.requests[len(s.requests)-1]
}

func (s *CLISuite) TestCreateAdHoc() {
	s.reply = `{"id":"d1","phase":"PENDING_ASSIGNMENT"}`
	s.Require().NoError(s.run("create", "--template", "short"))

	req := s.lastRequest()
	s.Equal(http.MethodPost, req.Method)
	s.Equal("/api/v1/drafts", req.Path)
	s.Equal("Bearer tok", req.Auth)
	s.Equal("short", req.Body["template"])
	s.NotContains(req.Body, "team_a")
}

func (s *CLISuite) TestCreateProvided() {
	s.Require().NoError(s.run("create", "--team-a", "u1:Alice#0001,u2", "--team-b", "u3:Carol"))

	req := s.lastRequest()
	teamA, ok := req.Body["team_a"].([]any)
	s.Require().True(ok)
	s.Len(teamA, 2)
	first := teamA[0].(map[string]any)
	s.Equal("u1", first["id"])
	s.Equal("Alice", first["display_name"])
	s.Equal("0001", first["discriminator"])
	second := teamA[1].(map[string]any)
	s.Equal("u2", second["display_name"])
}

func (s *CLISuite) TestBanWithCursor() {
	s.reply = `{"action":{"type":"BAN","team":"A","breed":7,"lock_for_picking_team":true,"lock_for_opponent_team":true}}`
	s.Require().NoError(s.run("ban", "d1", "a", "7", "--cursor", "0"))

	req := s.lastRequest()
	s.Equal("/api/v1/drafts/d1/actions", req.Path)
	s.Equal("BAN", req.Body["type"])
	s.Equal("A", req.Body["team"])
	s.Equal(float64(7), req.Body["breed"])
	s.Equal(float64(0), req.Body["cursor"])
}

func (s *CLISuite) TestPickWithoutCursor() {
	s.Require().NoError(s.run("pick", "d1", "B", "3"))

	req := s.lastRequest()
	s.Equal("PICK", req.Body["type"])
	s.NotContains(req.Body, "cursor")
}

func (s *CLISuite) TestPickInvalidBreed() {
	err := s.run("pick", "d1", "B", "wolf")
	s.Require().Error(err)
	s.Empty(s.requests)
}

func (s *CLISuite) TestAssignAndUnassign() {
	s.status = http.StatusNoContent
	s.reply = ``
	s.Require().NoError(s.run("assign", "d1", "u1", "b"))
	s.Equal(http.MethodPut, s.lastRequest().Method)
	s.Equal("/api/v1/drafts/d1/teams/B/members/u1", s.lastRequest().Path)

	s.Require().NoError(s.run("unassign", "d1", "u1"))
	s.Equal(http.MethodDelete, s.lastRequest().Method)
	s.Equal("/api/v1/drafts/d1/members/u1/team", s.lastRequest().Path)
}

func (s *CLISuite) TestReadyOff() {
	s.status = http.StatusNoContent
	s.reply = ``
	s.Require().NoError(s.run("ready", "d1", "A", "--off"))

	req := s.lastRequest()
	s.Equal("/api/v1/drafts/d1/teams/A/ready", req.Path)
	s.Equal(false, req.Body["ready"])
}

func (s *CLISuite) TestAPIErrorSurfaced() {
	s.status = http.StatusConflict
	s.reply = `{"error":{"code":"OUT_OF_TURN","message":"not your turn"}}`

	err := s.run("pick", "d1", "A", "1")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("OUT_OF_TURN", apiErr.Code)
	s.Equal(http.StatusConflict, apiErr.Status)
}

func (s *CLISuite) TestTokenMintAndSave() {
	tokenFile := filepath.Join(s.tokenDir, "token")
	s.Require().NoError(s.run("token", "mint", "--user", "u1", "--secret", "shh", "--role", "organizer", "--save"))

	data, err := os.ReadFile(tokenFile)
	s.Require().NoError(err)
	s.Equal(3, len(strings.Split(string(data), ".")))
	s.Empty(s.requests)
}

func (s *CLISuite) TestTokenMintRequiresSecret() {
	s.T().Setenv("DRAFTROOM_AUTH_SECRET", "")
	s.Error(s.run("token", "mint", "--user", "u1"))
}

func TestParseRoster(t *testing.T) {
	members, err := parseRoster([]string{"u1", "u2:Bob", "u3:Carol#42"})
	require.NoError(t, err)
	assert.Equal(t, []rosterMember{
		{ID: "u1", DisplayName: "u1"},
		{ID: "u2", DisplayName: "Bob"},
		{ID: "u3", DisplayName: "Carol", Discriminator: "42"},
	}, members)

	_, err = parseRoster([]string{":Nobody"})
	assert.Error(t, err)
}

func TestLoadTokenFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("abc\n"), 0600))

	c := &Config{TokenFile: path}
	require.NoError(t, c.LoadToken())
	assert.Equal(t, "abc", c.Token)

	missing := &Config{TokenFile: filepath.Join(t.TempDir(), "none")}
	assert.NoError(t, missing.LoadToken())
	assert.Empty(t, missing.Token)
}

func TestPrintDraftText(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{format: "text", w: &buf}
	out.Print(Draft{
		ID:       "d1",
		Template: "short",
		LeaderID: "u1",
		Phase:    "IN_PROGRESS",
		Cursor:   1,
		Total:    4,
		Current:  &Action{Type: "BAN", Team: "B"},
		History:  []Action{{Type: "BAN", Team: "A", Breed: 5, LockForPickingTeam: true, LockForOpponentTeam: true}},
		Users: []User{
			{ID: "u1", DisplayName: "Alice", Present: true},
			{ID: "u2", DisplayName: "Bob", Present: false},
			{ID: "u3", DisplayName: "Eve", Present: true},
		},
		TeamA:          []User{{ID: "u1", DisplayName: "Alice", Present: true}},
		TeamB:          []User{{ID: "u2", DisplayName: "Bob"}},
		TeamAReady:     true,
		LockedForTeamA: []int{5},
		LockedForTeamB: []int{5},
	})

	text := buf.String()
	assert.Contains(t, text, "Draft: d1 (short, ad-hoc)")
	assert.Contains(t, text, "Turn: 1/4")
	assert.Contains(t, text, "Next: BAN by team B")
	assert.Contains(t, text, "Team A (1) [ready]:")
	assert.Contains(t, text, "Alice [leader]")
	assert.Contains(t, text, "Bob (away)")
	assert.Contains(t, text, "Unassigned: Eve")
	assert.Contains(t, text, "A BAN 5 (locks self+opponent)")
	assert.Contains(t, text, "Locked for B: 5")
}

func TestPrintJSONFallback(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{format: "text", w: &buf}
	out.Print(map[string]int{"n": 1})
	assert.JSONEq(t, `{"n":1}`, buf.String())
}

func (s *CLISuite) TestHealthFailsWhenDegraded() {
	s.reply = `{"status":"degraded","live_sessions":2}`
	s.Error(s.run("health"))

	s.reply = `{"status":"ok","live_sessions":2}`
	s.NoError(s.run("health"))
	s.Equal("/api/v1/health", s.lastRequest().Path)
}
