package app

import (
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"testing"

	coreconfig "helpcenterbot/core/config"
	"helpcenterbot/core/helpcenter"
	"helpcenterbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

const routeAdmin = int64(100)

type apiCall struct {
	Method string
	Body   string
}

// apiStub answers every Bot API request locally so telebot routing runs
// without the network.
type apiStub struct {
	mu    sync.Mutex
	calls []apiCall
}

func (s *apiStub) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	s.mu.Lock()
	s.calls = append(s.calls, apiCall{Method: path.Base(req.URL.Path), Body: string(body)})
	s.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"result":{"message_id":1,"chat":{"id":1,"type":"private"}}}`)),
	}, nil
}

func (s *apiStub) bodies(method string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if c.Method == method {
			out = append(out, c.Body)
		}
	}
	return out
}

type nopStore struct{}

func (nopStore) Load() *helpcenter.State      { return helpcenter.DefaultState() }
func (nopStore) Save(*helpcenter.State) error { return nil }
func (nopStore) Close() error                 { return nil }

// routeTransport records service-side deliveries keyed by recipient.
type routeTransport struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (f *routeTransport) Send(recipient int64, msg helpcenter.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[int64][]string)
	}
	f.sent[recipient] = append(f.sent[recipient], msg.Text)
	return nil
}

func (f *routeTransport) texts(recipient int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[recipient]
}

// newRouteBot wires the app's real routes onto an offline bot backed by the
// API stub, so updates travel the same dispatch path as in production.
func newRouteBot(t *testing.T) (*App, *routeTransport, *apiStub, *tele.Bot) {
	t.Helper()

	tr := &routeTransport{}
	svc := helpcenter.New(helpcenter.Options{
		Store:         nopStore{},
		Policy:        helpcenter.NewPolicy(routeAdmin),
		Transport:     tr,
		FanoutWorkers: 2,
	})
	a := &App{
		cfg:     &coreconfig.Config{},
		store:   nopStore{},
		service: svc,
		sender:  telegram.NewSender(),
	}

	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("TelegramRunOptions: %v", err)
	}

	stub := &apiStub{}
	bot, err := tele.NewBot(tele.Settings{
		Token:       "route-test",
		Offline:     true,
		Synchronous: true,
		Client:      &http.Client{Transport: stub},
	})
	if err != nil {
		t.Fatalf("NewBot: %v", err)
	}
	for _, r := range opts.Routes {
		bot.Handle(r.Endpoint, r.Handler)
	}
	return a, tr, stub, bot
}

func adminMessage(id int, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			ID:     id,
			Text:   text,
			Sender: &tele.User{ID: routeAdmin},
			Chat:   &tele.Chat{ID: routeAdmin, Type: tele.ChatPrivate},
		},
	}
}

func TestActiveSessionConsumesCommandText(t *testing.T) {
	a, tr, stub, bot := newRouteBot(t)

	a.service.RegisterUser(5, "member")
	if err := a.service.StartSession(routeAdmin, helpcenter.ModeBroadcast); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	bot.ProcessUpdate(adminMessage(1, "/insights"))

	if _, active := a.service.ActiveSession(routeAdmin); active {
		t.Fatal("broadcast session survived a command-shaped payload")
	}
	got := tr.texts(5)
	if len(got) != 1 || got[0] != "/insights" {
		t.Fatalf("broadcast delivery = %q, want the literal text %q", got, "/insights")
	}
	sent := stub.bodies("sendMessage")
	if len(sent) != 1 || !strings.Contains(sent[0], "Broadcast delivered to 1 of 1") {
		t.Fatalf("admin confirmation = %q, want a broadcast report", sent)
	}
}

func TestCancelCommandEscapesActiveSession(t *testing.T) {
	a, tr, stub, bot := newRouteBot(t)

	a.service.RegisterUser(5, "member")
	if err := a.service.StartSession(routeAdmin, helpcenter.ModeBroadcast); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	bot.ProcessUpdate(adminMessage(2, "/cancel"))

	if _, active := a.service.ActiveSession(routeAdmin); active {
		t.Fatal("/cancel did not clear the session")
	}
	if got := tr.texts(5); len(got) != 0 {
		t.Fatalf("/cancel must not broadcast, user received %q", got)
	}
	sent := stub.bodies("sendMessage")
	if len(sent) != 1 || !strings.Contains(sent[0], textSessionCancelled) {
		t.Fatalf("admin confirmation = %q, want %q", sent, textSessionCancelled)
	}
}

func TestPanelAliasOpensAdminPanel(t *testing.T) {
	_, _, stub, bot := newRouteBot(t)

	bot.ProcessUpdate(adminMessage(3, "/panel"))

	sent := stub.bodies("sendMessage")
	if len(sent) != 1 || !strings.Contains(sent[0], "Admin panel") {
		t.Fatalf("reply to /panel = %q, want the admin panel", sent)
	}
}

func TestUnknownCommandGetsHint(t *testing.T) {
	_, _, stub, bot := newRouteBot(t)

	bot.ProcessUpdate(tele.Update{
		ID: 4,
		Message: &tele.Message{
			ID:     4,
			Text:   "/doesnotexist",
			Sender: &tele.User{ID: 7},
			Chat:   &tele.Chat{ID: 7, Type: tele.ChatPrivate},
		},
	})

	sent := stub.bodies("sendMessage")
	if len(sent) != 1 || !strings.Contains(sent[0], textUnknownCommand) {
		t.Fatalf("reply to unknown command = %q, want %q", sent, textUnknownCommand)
	}
}

func TestMenuCallbackEditsInPlace(t *testing.T) {
	_, _, stub, bot := newRouteBot(t)

	bot.ProcessUpdate(tele.Update{
		ID: 5,
		Callback: &tele.Callback{
			ID:     "cb-5",
			Sender: &tele.User{ID: 7},
			Data:   "\f" + cbIssuePayment,
			Message: &tele.Message{
				ID:     8,
				Sender: &tele.User{ID: 42},
				Chat:   &tele.Chat{ID: 7, Type: tele.ChatPrivate},
			},
		},
	})

	if got := stub.bodies("editMessageText"); len(got) != 1 {
		t.Fatalf("editMessageText calls = %d, want the menu edited in place", len(got))
	}
	if got := stub.bodies("sendMessage"); len(got) != 0 {
		t.Fatalf("menu navigation stacked a new message: %q", got)
	}
}
