package bot

import (
	"Painter/ai"
	"Painter/core"
	"Painter/holder"
	"Painter/lib/sl"
	"Painter/metrics"
	"Painter/storage"
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	actionUploadPhoto = "upload_photo"
	actionInterval    = 5 * time.Second
)

// Event is one user input: a command, a plain text or a style callback
type Event struct {
	UserId     int64
	ChatId     int64
	MessageId  int
	UserName   string
	Command    string
	Text       string
	CallbackId string
	Data       string
}

func (e Event) IsCallback() bool {
	return e.CallbackId != ""
}

// Dialog drives the per-user conversation that collects a prompt and a style
// and runs the generation.
type Dialog struct {
	conf      *core.Config
	sessions  *holder.SessionManager
	generator core.Generator
	messenger core.Messenger
	metrics   metrics.Metrics
	log       *slog.Logger

	actionEvery time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDialog(conf *core.Config, sessions *holder.SessionManager, generator core.Generator, messenger core.Messenger, m metrics.Metrics, log *slog.Logger) *Dialog {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dialog{
		conf:        conf,
		sessions:    sessions,
		generator:   generator,
		messenger:   messenger,
		metrics:     m,
		log:         log.With(sl.Module("dialog")),
		actionEvery: actionInterval,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Handle applies one event to the user's session
func (d *Dialog) Handle(ev Event) {
	unlock := d.sessions.Lock(ev.UserId)
	defer unlock()

	if ev.IsCallback() {
		d.metrics.ObserveCommand("style_selected")
		d.selectStyle(ev)
		return
	}
	if ev.Command == "" {
		d.metrics.ObserveCommand("text")
		d.text(ev)
		return
	}

	switch ev.Command {
	case "start":
		d.start(ev)
	case "help":
		d.reply(ev, helpText)
	case "positive":
		d.expect(ev, storage.AwaitingPositive, positiveAskText)
	case "negative":
		d.expect(ev, storage.AwaitingNegative, negativeAskText)
	case "skip_negative":
		d.skipNegative(ev)
	case "style":
		d.styleMenu(ev)
	case "generate":
		d.generate(ev)
	default:
		d.metrics.ObserveCommand("unknown")
		d.reply(ev, unknownCommandText)
		return
	}
	d.metrics.ObserveCommand(ev.Command)
}

// Wait blocks until running generations are done
func (d *Dialog) Wait() {
	d.wg.Wait()
}

// Shutdown cancels running generations and waits for them
func (d *Dialog) Shutdown() {
	d.cancel()
	d.wg.Wait()
}

func (d *Dialog) start(ev Event) {
	cancelled := d.sessions.CancelGeneration(ev.UserId)
	d.sessions.Reset(ev.UserId)
	if cancelled {
		d.log.With(sl.User(ev.UserId)).Info("generation cancelled by user")
		d.reply(ev, cancelledText)
	}
	d.reply(ev, startText)
}

// expect moves the cursor; a command argument is taken as the answer right away
func (d *Dialog) expect(ev Event, awaiting storage.Awaiting, ask string) {
	if strings.TrimSpace(ev.Text) != "" {
		d.answer(ev, awaiting)
		return
	}
	if d.sessions.Set(ev.UserId, map[storage.Field]string{storage.FieldAwaiting: string(awaiting)}) == nil {
		d.reply(ev, storageErrorText)
		return
	}
	d.reply(ev, ask)
}

func (d *Dialog) skipNegative(ev Event) {
	s := d.sessions.Set(ev.UserId, map[storage.Field]string{
		storage.FieldNegative: "",
		storage.FieldAwaiting: string(storage.AwaitingStyle),
	})
	if s == nil {
		d.reply(ev, storageErrorText)
		return
	}
	d.reply(ev, negativeSkippedText)
}

func (d *Dialog) text(ev Event) {
	s := d.sessions.Get(ev.UserId)
	switch s.Awaiting {
	case storage.AwaitingPositive, storage.AwaitingNegative:
		d.answer(ev, s.Awaiting)
	default:
		d.reply(ev, unknownText)
	}
}

// answer stores the text for the prompt the cursor points at
func (d *Dialog) answer(ev Event, awaiting storage.Awaiting) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		d.reply(ev, emptyText)
		return
	}

	var values map[storage.Field]string
	var reply string
	switch awaiting {
	case storage.AwaitingPositive:
		values = map[storage.Field]string{
			storage.FieldPositive: text,
			storage.FieldAwaiting: string(storage.AwaitingNegative),
		}
		reply = fmt.Sprintf(positiveSetText, text)
	case storage.AwaitingNegative:
		values = map[storage.Field]string{
			storage.FieldNegative: text,
			storage.FieldAwaiting: string(storage.AwaitingStyle),
		}
		reply = fmt.Sprintf(negativeSetText, text)
	default:
		d.reply(ev, unknownText)
		return
	}

	if d.sessions.Set(ev.UserId, values) == nil {
		d.reply(ev, storageErrorText)
		return
	}
	d.reply(ev, reply)
}

func (d *Dialog) styleMenu(ev Event) {
	if err := d.messenger.SendStyleMenu(ev.ChatId, ev.MessageId, styleMenuText, d.conf.Styles); err != nil {
		d.log.With(sl.User(ev.UserId)).Error("sending style menu", sl.Err(err))
	}
}

func (d *Dialog) selectStyle(ev Event) {
	style, ok := core.FindStyle(d.conf.Styles, ev.Data)
	if !ok {
		d.log.With(sl.User(ev.UserId), slog.String("data", ev.Data)).Warn("unknown style selected")
		d.answerCallback(ev, unknownStyleText)
		return
	}

	s := d.sessions.Set(ev.UserId, map[storage.Field]string{
		storage.FieldStyle:    string(style.Name),
		storage.FieldAwaiting: string(storage.AwaitingGenerate),
	})
	d.answerCallback(ev, "")
	if s == nil {
		d.reply(ev, storageErrorText)
		return
	}
	d.reply(ev, fmt.Sprintf(styleSetText, style.Label()))
}

func (d *Dialog) generate(ev Event) {
	s := d.sessions.Get(ev.UserId)
	if !s.ReadyToGenerate() {
		d.reply(ev, incompleteText)
		return
	}
	if d.sessions.Generating(ev.UserId) {
		d.reply(ev, alreadyGeneratingText)
		return
	}
	if !d.sessions.AllowGeneration(ev.UserId) {
		d.reply(ev, rateLimitedText)
		return
	}

	ctx, finish, ok := d.sessions.StartGeneration(d.ctx, ev.UserId)
	if !ok {
		d.reply(ev, alreadyGeneratingText)
		return
	}

	request := d.conf.Request(s.PositiveRequest, s.NegativeRequest, s.Style)
	d.reply(ev, generatingText)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer finish()
		d.runGeneration(ctx, finish, ev, request)
	}()
}

// runGeneration delivers the result under the user lock, so a /start that
// cancelled ctx is never followed by a stale photo.
func (d *Dialog) runGeneration(ctx context.Context, finish func(), ev Event, request core.GenerationRequest) {
	log := d.log.With(
		sl.User(ev.UserId),
		slog.String("run", uuid.NewString()),
		slog.String("style", string(request.Style)),
		sl.Short("positive", request.Positive),
	)
	log.Info("generation started")

	stop := d.keepChatAction(ctx, ev.ChatId)
	start := time.Now()
	dir := filepath.Join(d.conf.Output.Dir, strconv.FormatInt(ev.UserId, 10))
	result, err := ai.Run(ctx, d.generator, request, dir)
	stop()
	elapsed := time.Since(start).Seconds()

	unlock := d.sessions.Lock(ev.UserId)
	defer unlock()
	defer finish()

	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		d.metrics.ObserveGeneration("cancelled", elapsed)
		log.Info("generation cancelled")
		return
	}
	if err != nil {
		d.metrics.ObserveGeneration(resultLabel(err), elapsed)
		log.With(slog.String("kind", ai.KindOf(err).String())).Error("generation failed", sl.Err(err))
		d.reply(ev, failedText)
		return
	}

	if err = d.messenger.SendPhoto(ev.ChatId, ev.MessageId, result.Paths[0]); err != nil {
		d.metrics.ObserveGeneration("delivery", elapsed)
		log.Error("sending photo", sl.Err(err))
		d.reply(ev, failedText)
		return
	}
	d.metrics.ObserveGeneration("ok", elapsed)
	log.With(
		slog.String("job", result.JobId),
		slog.String("file", result.Paths[0]),
		slog.Float64("seconds", elapsed),
	).Info("generation done")
	d.reply(ev, doneText)
}

// keepChatAction repeats the upload_photo action until the returned func is called
func (d *Dialog) keepChatAction(ctx context.Context, chatId int64) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(d.actionEvery)
		defer ticker.Stop()

		d.sendAction(chatId)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.sendAction(chatId)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (d *Dialog) sendAction(chatId int64) {
	if err := d.messenger.SendChatAction(chatId, actionUploadPhoto); err != nil {
		d.log.Debug("sending chat action", sl.Err(err))
	}
}

func (d *Dialog) reply(ev Event, text string) {
	replyTo := ev.MessageId
	if ev.IsCallback() {
		replyTo = 0
	}
	if err := d.messenger.SendText(ev.ChatId, replyTo, text); err != nil {
		d.log.With(sl.User(ev.UserId)).Error("sending message", sl.Err(err))
	}
}

func (d *Dialog) answerCallback(ev Event, text string) {
	if err := d.messenger.AnswerCallback(ev.CallbackId, text); err != nil {
		d.log.With(sl.User(ev.UserId)).Error("answering callback", sl.Err(err))
	}
}

func resultLabel(err error) string {
	switch ai.KindOf(err) {
	case ai.KindTransport:
		return "transport"
	case ai.KindAuth:
		return "auth"
	case ai.KindNoModels:
		return "no_models"
	case ai.KindSubmission:
		return "submission"
	case ai.KindGenerationFailed:
		return "failed"
	case ai.KindEmptyResult:
		return "empty"
	case ai.KindTimeout:
		return "timeout"
	case ai.KindDecode:
		return "decode"
	default:
		return "error"
	}
}
