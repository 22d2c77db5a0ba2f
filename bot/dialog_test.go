package bot

import (
	"Painter/ai"
	"Painter/core"
	"Painter/holder"
	"Painter/storage"
	"context"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = int64(7)

type fakeGenerator struct {
	mu       sync.Mutex
	resolves int
	submits  int
	polls    int
	persists int
	request  core.GenerationRequest
	dir      string
	pollErr  error
	block    chan struct{}

	persisting   chan struct{}
	persistBlock chan struct{}
}

type counts struct {
	resolves, submits, polls, persists int
}

func (g *fakeGenerator) counts() counts {
	g.mu.Lock()
	defer g.mu.Unlock()
	return counts{g.resolves, g.submits, g.polls, g.persists}
}

func (g *fakeGenerator) ResolveModel(_ context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolves++
	return "4", nil
}

func (g *fakeGenerator) Submit(_ context.Context, req core.GenerationRequest, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submits++
	g.request = req
	return "job-1", nil
}

func (g *fakeGenerator) Poll(ctx context.Context, _ string) ([]image.Image, error) {
	g.mu.Lock()
	g.polls++
	block, pollErr := g.block, g.pollErr
	g.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}
	if pollErr != nil {
		return nil, pollErr
	}
	return []image.Image{image.NewRGBA(image.Rect(0, 0, 2, 2))}, nil
}

func (g *fakeGenerator) Persist(_ []image.Image, dir string) ([]string, error) {
	g.mu.Lock()
	g.persists++
	g.dir = dir
	persisting, persistBlock := g.persisting, g.persistBlock
	g.mu.Unlock()

	if persistBlock != nil {
		close(persisting)
		<-persistBlock
	}
	return []string{filepath.Join(dir, "1.png")}, nil
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []string
	photos    []string
	menus     int
	callbacks []string
	actions   int
}

func (m *fakeMessenger) SendText(_ int64, _ int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return nil
}

func (m *fakeMessenger) SendStyleMenu(_ int64, _ int, _ string, _ []core.StyleOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menus++
	return nil
}

func (m *fakeMessenger) SendPhoto(_ int64, _ int, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = append(m.photos, path)
	return nil
}

func (m *fakeMessenger) AnswerCallback(_ string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, text)
	return nil
}

func (m *fakeMessenger) SendChatAction(_ int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions++
	return nil
}

func (m *fakeMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func (m *fakeMessenger) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMessenger) sentPhotos() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.photos...)
}

type fixture struct {
	dialog    *Dialog
	generator *fakeGenerator
	messenger *fakeMessenger
	sessions  *holder.SessionManager
	conf      *core.Config
}

func newFixture(t *testing.T, perMinute int) *fixture {
	conf := &core.Config{Styles: core.DefaultStyles()}
	conf.Output.Dir = t.TempDir()
	conf.Provider.Images = 1
	conf.Provider.Width = 1024
	conf.Provider.Height = 1024

	f := &fixture{
		generator: &fakeGenerator{},
		messenger: &fakeMessenger{},
		sessions:  holder.NewSessionManager(storage.NewMemoryStorage(), perMinute, slog.Default()),
		conf:      conf,
	}
	f.dialog = NewDialog(conf, f.sessions, f.generator, f.messenger, nil, slog.Default())
	t.Cleanup(f.dialog.Shutdown)
	return f
}

func (f *fixture) command(name, args string) {
	f.dialog.Handle(Event{UserId: testUser, ChatId: testUser, MessageId: 1, Command: name, Text: args})
}

func (f *fixture) text(text string) {
	f.dialog.Handle(Event{UserId: testUser, ChatId: testUser, MessageId: 1, Text: text})
}

func (f *fixture) selectStyle(name string) {
	f.dialog.Handle(Event{UserId: testUser, ChatId: testUser, CallbackId: "cb", Data: name})
}

// ready walks the dialog up to the point where /generate is accepted
func (f *fixture) ready() {
	f.command("start", "")
	f.command("positive", "")
	f.text("a red fox")
	f.command("skip_negative", "")
	f.command("style", "")
	f.selectStyle(string(core.StyleAnime))
}

func TestDialog_FullPath(t *testing.T) {
	f := newFixture(t, 0)

	f.ready()
	assert.Equal(t, 1, f.messenger.menus)
	assert.Equal(t, []string{""}, f.messenger.callbacks)

	f.command("generate", "")
	f.dialog.Wait()

	c := f.generator.counts()
	assert.Equal(t, 1, c.resolves)
	assert.Equal(t, 1, c.submits)
	assert.GreaterOrEqual(t, c.polls, 1)
	assert.Equal(t, 1, c.persists)

	assert.Equal(t, "a red fox", f.generator.request.Positive)
	assert.Equal(t, "", f.generator.request.Negative)
	assert.Equal(t, core.StyleAnime, f.generator.request.Style)
	assert.Equal(t, 1, f.generator.request.Images)
	assert.Equal(t, filepath.Join(f.conf.Output.Dir, "7"), f.generator.dir)

	require.Len(t, f.messenger.sentPhotos(), 1)
	assert.Equal(t, filepath.Join(f.conf.Output.Dir, "7", "1.png"), f.messenger.sentPhotos()[0])
	assert.Equal(t, doneText, f.messenger.last())
	assert.Contains(t, f.messenger.texts(), generatingText)

	s := f.sessions.Get(testUser)
	assert.Equal(t, storage.AwaitingGenerate, s.Awaiting)
	assert.False(t, f.sessions.Generating(testUser))
}

func TestDialog_NegativePrompt(t *testing.T) {
	f := newFixture(t, 0)

	f.command("start", "")
	f.command("positive", "a lighthouse")
	f.text("people")

	s := f.sessions.Get(testUser)
	assert.Equal(t, "a lighthouse", s.PositiveRequest)
	assert.Equal(t, "people", s.NegativeRequest)
	assert.Equal(t, storage.AwaitingStyle, s.Awaiting)
	assert.Contains(t, f.messenger.last(), "Negative prompt set: people")
}

func TestDialog_GenerateBeforeStyle(t *testing.T) {
	f := newFixture(t, 0)

	f.command("start", "")
	f.command("positive", "")
	f.text("cat")
	f.command("generate", "")
	f.dialog.Wait()

	assert.Equal(t, counts{}, f.generator.counts())
	assert.Equal(t, incompleteText, f.messenger.last())
	assert.Empty(t, f.messenger.sentPhotos())
}

func TestDialog_StyleWithoutPositive(t *testing.T) {
	f := newFixture(t, 0)

	f.command("start", "")
	f.selectStyle(string(core.StyleUHD))
	f.command("generate", "")
	f.dialog.Wait()

	assert.Equal(t, counts{}, f.generator.counts())
	assert.Equal(t, incompleteText, f.messenger.last())
}

func TestDialog_UnknownStyle(t *testing.T) {
	f := newFixture(t, 0)

	f.command("start", "")
	f.command("positive", "cat")
	f.selectStyle("WATERCOLOR")

	assert.Equal(t, []string{unknownStyleText}, f.messenger.callbacks)
	s := f.sessions.Get(testUser)
	assert.Equal(t, core.StyleDefault, s.Style)
	assert.Equal(t, storage.AwaitingNegative, s.Awaiting)
}

func TestDialog_TextWithoutCursor(t *testing.T) {
	f := newFixture(t, 0)

	f.command("start", "")
	f.text("hello")

	assert.Equal(t, unknownText, f.messenger.last())
	s := f.sessions.Get(testUser)
	assert.Equal(t, storage.AwaitingNone, s.Awaiting)
	assert.Empty(t, s.PositiveRequest)
}

func TestDialog_EmptyText(t *testing.T) {
	f := newFixture(t, 0)

	f.command("positive", "")
	f.text("   ")

	assert.Equal(t, emptyText, f.messenger.last())
	assert.Equal(t, storage.AwaitingPositive, f.sessions.Get(testUser).Awaiting)
}

func TestDialog_UnknownCommand(t *testing.T) {
	f := newFixture(t, 0)

	f.command("paint", "")
	assert.Equal(t, unknownCommandText, f.messenger.last())
}

func TestDialog_GenerationFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.generator.pollErr = &ai.Error{Kind: ai.KindGenerationFailed, Op: "status", Description: "censored"}

	f.ready()
	f.command("generate", "")
	f.dialog.Wait()

	assert.Equal(t, failedText, f.messenger.last())
	assert.Empty(t, f.messenger.sentPhotos())
	assert.Equal(t, 0, f.generator.counts().persists)
	assert.False(t, f.sessions.Generating(testUser))
}

func TestDialog_StartCancelsGeneration(t *testing.T) {
	f := newFixture(t, 0)
	f.generator.block = make(chan struct{})

	f.ready()
	f.command("generate", "")
	require.Eventually(t, func() bool {
		return f.generator.counts().polls == 1
	}, time.Second, 5*time.Millisecond)

	f.command("start", "")
	f.dialog.Wait()

	texts := f.messenger.texts()
	assert.Contains(t, texts, cancelledText)
	assert.NotContains(t, texts, failedText)
	assert.Equal(t, startText, f.messenger.last())
	assert.Empty(t, f.messenger.sentPhotos())

	s := f.sessions.Get(testUser)
	assert.Empty(t, s.PositiveRequest)
	assert.Equal(t, storage.AwaitingNone, s.Awaiting)
	assert.False(t, f.sessions.Generating(testUser))
}

func TestDialog_StartDuringPersistDropsResult(t *testing.T) {
	f := newFixture(t, 0)
	f.generator.persisting = make(chan struct{})
	f.generator.persistBlock = make(chan struct{})

	f.ready()
	f.command("generate", "")
	select {
	case <-f.generator.persisting:
	case <-time.After(time.Second):
		t.Fatal("generation did not reach persist")
	}

	f.command("start", "")
	assert.True(t, f.sessions.Generating(testUser), "cancelled run holds its slot until it returns")

	close(f.generator.persistBlock)
	f.dialog.Wait()

	assert.Empty(t, f.messenger.sentPhotos())
	texts := f.messenger.texts()
	assert.Contains(t, texts, cancelledText)
	assert.NotContains(t, texts, doneText)
	assert.NotContains(t, texts, failedText)
	assert.Equal(t, startText, f.messenger.last())
	assert.False(t, f.sessions.Generating(testUser))
}

func TestDialog_SecondGenerateWhileRunning(t *testing.T) {
	f := newFixture(t, 0)
	f.generator.block = make(chan struct{})

	f.ready()
	f.command("generate", "")
	require.Eventually(t, func() bool {
		return f.generator.counts().polls == 1
	}, time.Second, 5*time.Millisecond)

	f.command("generate", "")
	assert.Equal(t, alreadyGeneratingText, f.messenger.last())

	close(f.generator.block)
	f.dialog.Wait()

	assert.Equal(t, 1, f.generator.counts().resolves)
	assert.Len(t, f.messenger.sentPhotos(), 1)
}

func TestDialog_RateLimit(t *testing.T) {
	f := newFixture(t, 1)

	f.ready()
	f.command("generate", "")
	f.dialog.Wait()
	f.command("generate", "")
	f.dialog.Wait()

	assert.Equal(t, rateLimitedText, f.messenger.last())
	assert.Equal(t, 1, f.generator.counts().submits)
}

func TestDialog_EventsInOrder(t *testing.T) {
	f := newFixture(t, 0)
	d := NewDispatcher()

	events := []Event{
		{UserId: testUser, ChatId: testUser, Command: "start"},
		{UserId: testUser, ChatId: testUser, Command: "positive"},
		{UserId: testUser, ChatId: testUser, Text: "first"},
		{UserId: testUser, ChatId: testUser, Text: "second"},
	}
	for _, ev := range events {
		d.Dispatch(ev.UserId, func() { f.dialog.Handle(ev) })
	}
	d.Wait()

	s := f.sessions.Get(testUser)
	assert.Equal(t, "first", s.PositiveRequest)
	assert.Equal(t, "second", s.NegativeRequest)
	assert.Equal(t, storage.AwaitingStyle, s.Awaiting)
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "timeout", resultLabel(&ai.Error{Kind: ai.KindTimeout}))
	assert.Equal(t, "auth", resultLabel(&ai.Error{Kind: ai.KindAuth}))
	assert.Equal(t, "error", resultLabel(context.DeadlineExceeded))
}
