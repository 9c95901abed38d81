package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tgrozenski/agent-email/internal/apperr"
	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"
	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"

	"golang.org/x/oauth2"
)

type fakeProvider struct {
	mu sync.Mutex

	changes    *emaildomain.ChangeLog
	changesErr error
	messages   map[string]*emaildomain.InboundMessage
	fetchErr   map[string]error
	current    string
	watchErr   map[string]error // keyed by access token

	fetched []string
	drafts  []createdDraft
	watches []string
}

type createdDraft struct {
	ThreadID string
	Raw      []byte
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		changes:  &emaildomain.ChangeLog{},
		messages: map[string]*emaildomain.InboundMessage{},
		fetchErr: map[string]error{},
		watchErr: map[string]error{},
	}
}

func (f *fakeProvider) addMessage(id, watermark, body string, headers ...emaildomain.Header) {
	if len(headers) == 0 {
		headers = []emaildomain.Header{
			{Name: "Subject", Value: "Question about " + id},
			{Name: "From", Value: "Alice <alice@example.com>"},
			{Name: "Message-ID", Value: "<" + id + "@mail.example.com>"},
		}
	}
	f.messages[id] = &emaildomain.InboundMessage{
		ID:        id,
		ThreadID:  "thread-" + id,
		Headers:   headers,
		Body:      body,
		Watermark: watermark,
	}
}

func (f *fakeProvider) ListChanges(_ context.Context, _ *oauth2.Token, _ string) (*emaildomain.ChangeLog, error) {
	if f.changesErr != nil {
		return nil, f.changesErr
	}
	return f.changes, nil
}

func (f *fakeProvider) GetMessage(_ context.Context, _ *oauth2.Token, id string) (*emaildomain.InboundMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, id)
	if err := f.fetchErr[id]; err != nil {
		return nil, err
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return msg, nil
}

func (f *fakeProvider) GetReplyMetadata(_ context.Context, _ *oauth2.Token, id string) (*emaildomain.ReplyMetadata, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return &emaildomain.ReplyMetadata{MessageID: id, ThreadID: msg.ThreadID, Headers: msg.Headers}, nil
}

func (f *fakeProvider) CreateDraft(_ context.Context, _ *oauth2.Token, threadID string, raw []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, createdDraft{ThreadID: threadID, Raw: raw})
	return fmt.Sprintf("draft-%d", len(f.drafts)), nil
}

func (f *fakeProvider) Watch(_ context.Context, token *oauth2.Token, topic string, _ []string) (*emaildomain.WatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.watchErr[token.AccessToken]; err != nil {
		return nil, err
	}
	f.watches = append(f.watches, token.AccessToken+"@"+topic)
	return &emaildomain.WatchResult{Watermark: f.current, Expiration: 1}, nil
}

func (f *fakeProvider) CurrentWatermark(context.Context, *oauth2.Token) (string, error) {
	return f.current, nil
}

func (f *fakeProvider) draftThreads() []string {
	out := make([]string, 0, len(f.drafts))
	for _, d := range f.drafts {
		out = append(out, d.ThreadID)
	}
	return out
}

// fakeBroker hands out "access-<refresh>" and rejects refresh tokens listed in revoked.
type fakeBroker struct {
	revoked map[string]bool
}

func (b *fakeBroker) Exchange(_ context.Context, refresh string) (*oauth2.Token, error) {
	if b.revoked[refresh] {
		return nil, &apperr.AuthError{Err: errors.New("invalid_grant")}
	}
	return &oauth2.Token{AccessToken: "access-" + refresh}, nil
}

// plainDecrypt treats stored credentials as "enc:<refresh>".
func plainDecrypt(ciphertext string) (string, error) {
	if len(ciphertext) < 4 || ciphertext[:4] != "enc:" {
		return "", errors.New("malformed ciphertext")
	}
	return ciphertext[4:], nil
}

type fakeUsers struct {
	mu      sync.Mutex
	users   map[string]*authdomain.User
	findErr error
	advErr  error
}

func newFakeUsers(users ...authdomain.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*authdomain.User{}}
	for i := range users {
		u := users[i]
		f.users[u.Email] = &u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *authdomain.User) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return false, nil
	}
	cp := *u
	f.users[u.Email] = &cp
	return true, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*authdomain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uint) (*authdomain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetAttribute(_ context.Context, email string, attr authdomain.UserAttribute) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return "", false, nil
	}
	switch attr {
	case authdomain.AttrHistoryID:
		return u.HistoryID, true, nil
	case authdomain.AttrRefreshToken:
		return u.EncryptedRefreshToken, true, nil
	case authdomain.AttrName:
		return u.Name, true, nil
	case authdomain.AttrUserID:
		return fmt.Sprint(u.ID), true, nil
	}
	return "", false, fmt.Errorf("unknown attribute %s", attr)
}

func (f *fakeUsers) AdvanceWatermark(_ context.Context, email, watermark string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.advErr != nil {
		return false, f.advErr
	}
	u, ok := f.users[email]
	if !ok {
		return false, &apperr.StorageError{Op: "advance watermark", Err: errors.New("no such user")}
	}
	if authdomain.CompareWatermarks(watermark, u.HistoryID) <= 0 {
		return false, nil
	}
	u.HistoryID = watermark
	return true, nil
}

func (f *fakeUsers) SetWatermark(_ context.Context, email, watermark string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return &apperr.StorageError{Op: "set watermark", Err: errors.New("no such user")}
	}
	u.HistoryID = watermark
	return nil
}

func (f *fakeUsers) UpdateRefreshToken(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[email]; ok {
		u.EncryptedRefreshToken = token
	}
	return nil
}

func (f *fakeUsers) ListWatchCandidates(context.Context) ([]authdomain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]authdomain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) watermark(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[email].HistoryID
}

type fakeDrafts struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{entries: map[string]string{}}
}

func draftKey(userID uint, msgID string) string {
	return fmt.Sprintf("%d/%s", userID, msgID)
}

func (f *fakeDrafts) Claim(_ context.Context, userID uint, msgID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[draftKey(userID, msgID)]; ok {
		return true, nil
	}
	f.entries[draftKey(userID, msgID)] = ""
	return false, nil
}

func (f *fakeDrafts) Complete(_ context.Context, userID uint, msgID, draftID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[draftKey(userID, msgID)] = draftID
	return nil
}

func (f *fakeDrafts) Release(_ context.Context, userID uint, msgID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, draftKey(userID, msgID))
	return nil
}

func (f *fakeDrafts) IsDrafted(_ context.Context, userID uint, msgID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.entries[draftKey(userID, msgID)]
	return ok && id != "", nil
}

type fakeRetriever struct {
	docs    []docdomain.RetrievedContext
	err     error
	queries []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ uint, query string, k int) ([]docdomain.RetrievedContext, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.docs) > k {
		return f.docs[:k], nil
	}
	return f.docs, nil
}

// scriptedGenerator fails its first failures calls, then echoes the prompt length.
type scriptedGenerator struct {
	failures int
	err      error
	calls    int
	prompts  []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.calls <= g.failures {
		if g.err != nil {
			return "", g.err
		}
		return "", fmt.Errorf("provider unavailable (call %d)", g.calls)
	}
	return "Thanks for reaching out, I will follow up shortly.", nil
}

type recordingNotifier struct {
	drafts []*emaildomain.DraftResult
}

func (n *recordingNotifier) NotifyDraftReady(_ context.Context, _ uint, _ *emaildomain.InboundMessage, draft *emaildomain.DraftResult) error {
	n.drafts = append(n.drafts, draft)
	return nil
}

func noSleepPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}
