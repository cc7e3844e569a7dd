package factory

import (
	"time"

	"github.com/mcoot/draftroom/internal/dependencies/mocks"
	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/services/auth"
	"github.com/mcoot/draftroom/internal/services/session"
	"github.com/mcoot/draftroom/internal/storage/memory"
	"github.com/mcoot/draftroom/internal/testutil"
	"github.com/mcoot/draftroom/internal/transport/ws"
)

// TestSecret signs tokens minted by TestApp.Token
const TestSecret = "test-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	authCfg := auth.Config{Secret: TestSecret, TokenDuration: 24 * time.Hour}
	app := newWithDependencies(store, mockClock, mockRandom, authCfg, session.DefaultConfig(), ws.DefaultConfig(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}

// Token mints an identity token for user with the given roles
func (t *TestApp) Token(user model.DraftUser, roles ...string) string {
	token, err := t.AuthService.IssueToken(user, roles)
	if err != nil {
		panic(err)
	}
	return token
}
