package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
	"github.com/xkilldash9x/scriptwalk/internal/config"
	"github.com/xkilldash9x/scriptwalk/internal/interpreter"
	"github.com/xkilldash9x/scriptwalk/internal/mocks"
	"github.com/xkilldash9x/scriptwalk/internal/reporting"
)

// fakeSession adds navigation to the browser mock.
type fakeSession struct {
	*mocks.MockBrowser
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	return s.Called(ctx, url).Error(0)
}

type fakeStore struct {
	mock.Mock
}

func (s *fakeStore) EnsureSchema(ctx context.Context) error {
	return s.Called(ctx).Error(0)
}

func (s *fakeStore) PersistRun(ctx context.Context, run *schemas.RunRecord) error {
	return s.Called(ctx, run).Error(0)
}

type fakeStoreProvider struct {
	store   *fakeStore
	err     error
	created int
	closed  int
}

func (p *fakeStoreProvider) Create(ctx context.Context, cfg config.Interface) (runStore, func(), error) {
	p.created++
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() { p.closed++ }, nil
}

const captureScript = `
drugs:
  operation: captureList
  selectorType: cssSelector
  selector: li.drug
  variable: drugs
shot:
  operation: snapshot
`

var drugLocator = schemas.Locator{Kind: schemas.SelectorCSS, Value: "li.drug"}

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func textElement(text string) *mocks.MockElement {
	el := new(mocks.MockElement)
	el.On("Text", mock.Anything).Return(text, nil)
	return el
}

type runFixture struct {
	cfg      *config.Config
	sess     *fakeSession
	factory  sessionFactory
	provider *fakeStoreProvider
	opened   int
	released int
	out      *bytes.Buffer
	cmd      *cobra.Command
}

func newRunFixture(t *testing.T) *runFixture {
	t.Helper()
	f := &runFixture{
		cfg:      config.NewDefaultConfig(),
		sess:     &fakeSession{MockBrowser: new(mocks.MockBrowser)},
		provider: &fakeStoreProvider{store: new(fakeStore)},
		out:      new(bytes.Buffer),
		cmd:      &cobra.Command{},
	}
	f.cfg.SetOutputDir(t.TempDir())
	f.cmd.SetOut(f.out)
	f.factory = func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (session, func(), error) {
		f.opened++
		return f.sess, func() { f.released++ }, nil
	}
	return f
}

func (f *runFixture) run(ctx context.Context, url, scriptPath string) error {
	return runScript(ctx, zap.NewNop(), f.cfg, url, scriptPath, f.factory, f.provider, f.cmd)
}

func (f *runFixture) runDir(t *testing.T) string {
	t.Helper()
	entries, err := os.ReadDir(f.cfg.Output().Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "exactly one run directory")
	return filepath.Join(f.cfg.Output().Dir, entries[0].Name())
}

func TestRunScript_Success(t *testing.T) {
	f := newRunFixture(t)
	f.sess.On("Navigate", mock.Anything, "https://formulary.example.com").Return(nil)
	f.sess.On("FindElements", mock.Anything, drugLocator).
		Return([]schemas.Element{textElement("Aspirin"), textElement("Ibuprofen")}, nil)
	f.sess.On("PageSource", mock.Anything).
		Return("<html><head><title>Formulary</title></head></html>", nil)

	err := f.run(context.Background(), "formulary.example.com", writeScript(t, captureScript))
	require.NoError(t, err)
	f.sess.AssertExpectations(t)
	assert.Equal(t, 1, f.opened)
	assert.Equal(t, 1, f.released, "session released")
	assert.Zero(t, f.provider.created, "no database configured")

	m, err := reporting.ReadManifest(f.runDir(t))
	require.NoError(t, err)
	assert.Equal(t, "https://formulary.example.com", m.URL)
	assert.Empty(t, m.Error)
	assert.Equal(t, []reporting.CaptureSummary{{Name: "drugs", Count: 2}}, m.Captures)
	require.Len(t, m.Snapshots, 1)
	assert.Equal(t, "shot", m.Snapshots[0].Path)
	assert.Equal(t, "Formulary", m.Snapshots[0].Title)

	assert.Contains(t, f.out.String(), "Run ID: "+m.RunID)
}

func TestRunScript_FailureStillWritesPartialResults(t *testing.T) {
	f := newRunFixture(t)
	f.sess.On("Navigate", mock.Anything, "https://example.com").Return(nil)
	f.sess.On("PageSource", mock.Anything).Return("<html></html>", nil)
	f.sess.On("FindElement", mock.Anything, schemas.Locator{Kind: schemas.SelectorID, Value: "missing"}).
		Return(nil, schemas.ErrElementNotFound)

	path := writeScript(t, `
before:
  operation: snapshot
go:
  operation: click
  selectorType: id
  selector: missing
after:
  operation: snapshot
`)
	err := f.run(context.Background(), "https://example.com", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrElementNotFound)

	var opErr *interpreter.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "go", opErr.Path)

	m, err := reporting.ReadManifest(f.runDir(t))
	require.NoError(t, err)
	assert.Contains(t, m.Error, "element not found")
	require.Len(t, m.Snapshots, 1, "only the snapshot before the failure")
	assert.Equal(t, "before", m.Snapshots[0].Path)
	assert.Equal(t, 1, f.released)
}

func TestRunScript_NavigationFailure(t *testing.T) {
	f := newRunFixture(t)
	navErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
	f.sess.On("Navigate", mock.Anything, "https://nowhere.invalid").Return(navErr)

	err := f.run(context.Background(), "https://nowhere.invalid", writeScript(t, captureScript))
	assert.ErrorIs(t, err, navErr)

	m, err := reporting.ReadManifest(f.runDir(t))
	require.NoError(t, err)
	assert.Equal(t, navErr.Error(), m.Error)
	assert.Empty(t, m.Captures)
}

func TestRunScript_SessionFailure(t *testing.T) {
	f := newRunFixture(t)
	launchErr := errors.New("chrome not found")
	f.factory = func(context.Context, config.Interface, *zap.Logger) (session, func(), error) {
		return nil, nil, launchErr
	}

	err := f.run(context.Background(), "https://example.com", writeScript(t, captureScript))
	assert.ErrorIs(t, err, launchErr)

	m, err := reporting.ReadManifest(f.runDir(t))
	require.NoError(t, err)
	assert.Equal(t, launchErr.Error(), m.Error)
}

func TestRunScript_InvalidScript(t *testing.T) {
	f := newRunFixture(t)

	err := f.run(context.Background(), "https://example.com", writeScript(t, "- just\n- a list\n"))
	require.Error(t, err)
	assert.Zero(t, f.opened, "browser is not launched for an unreadable script")
}

func TestRunScript_Persists(t *testing.T) {
	f := newRunFixture(t)
	f.cfg.DatabaseCfg.URL = "postgres://scriptwalk@localhost/runs"
	f.sess.On("Navigate", mock.Anything, "https://example.com").Return(nil)
	f.sess.On("FindElements", mock.Anything, drugLocator).Return([]schemas.Element{textElement("Aspirin")}, nil)
	f.sess.On("PageSource", mock.Anything).Return("<html></html>", nil)

	var persisted *schemas.RunRecord
	f.provider.store.On("EnsureSchema", mock.Anything).Return(nil)
	f.provider.store.On("PersistRun", mock.Anything, mock.AnythingOfType("*schemas.RunRecord")).
		Run(func(args mock.Arguments) { persisted = args.Get(1).(*schemas.RunRecord) }).
		Return(nil)

	require.NoError(t, f.run(context.Background(), "https://example.com", writeScript(t, captureScript)))
	f.provider.store.AssertExpectations(t)
	assert.Equal(t, 1, f.provider.closed)

	require.NotNil(t, persisted)
	assert.NotEmpty(t, persisted.ID)
	values, ok := persisted.Result.Capture("drugs")
	require.True(t, ok)
	assert.Equal(t, []string{"Aspirin"}, values)
	assert.False(t, persisted.FinishedAt.Before(persisted.StartedAt))
}

func TestRunScript_PersistFailure(t *testing.T) {
	f := newRunFixture(t)
	f.cfg.DatabaseCfg.URL = "postgres://scriptwalk@localhost/runs"
	f.provider.err = errors.New("connection refused")
	f.sess.On("Navigate", mock.Anything, "https://example.com").Return(nil)
	f.sess.On("FindElements", mock.Anything, drugLocator).Return([]schemas.Element{}, nil)
	f.sess.On("PageSource", mock.Anything).Return("<html></html>", nil)

	err := f.run(context.Background(), "https://example.com", writeScript(t, captureScript))
	require.Error(t, err)
	assert.ErrorIs(t, err, f.provider.err)

	// Results on disk do not depend on the database.
	_, err = reporting.ReadManifest(f.runDir(t))
	assert.NoError(t, err)
}

func TestRunScript_CanceledContextStillWrites(t *testing.T) {
	f := newRunFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.sess.On("Navigate", mock.Anything, "https://example.com").
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)

	err := f.run(ctx, "https://example.com", writeScript(t, captureScript))
	assert.ErrorIs(t, err, context.Canceled)

	m, err := reporting.ReadManifest(f.runDir(t))
	require.NoError(t, err)
	assert.Contains(t, m.Error, "context canceled")
}
