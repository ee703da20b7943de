package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/domain"
	"github.com/Fahry-a/Chat/internal/repository/memory"
)

// steppingClock advances one millisecond per reading so every created_at is
// distinct and strictly increasing.
type steppingClock struct {
	base  time.Time
	ticks atomic.Int64
}

func (c *steppingClock) Now() time.Time {
	return c.base.Add(time.Duration(c.ticks.Add(1)) * time.Millisecond)
}

type env struct {
	store    *memory.Store
	clock    *steppingClock
	auth     *AuthService
	convs    *ConversationService
	messages *MessageService
	unread   *UnreadService
	contacts *ContactService
	sync     *SyncService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	clock := &steppingClock{base: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store.SetClock(clock.Now)

	msgRepo := store.Messages()
	convs := NewConversationService(store.Conversations(), msgRepo, 5*time.Minute)
	unread := NewUnreadService(msgRepo)
	contacts := NewContactService(store.Contacts(), store.Users(), msgRepo, 5*time.Minute)

	return &env{
		store:    store,
		clock:    clock,
		auth:     NewAuthService(store.Users(), "test-secret", time.Hour),
		convs:    convs,
		messages: NewMessageService(msgRepo, store.Users(), store.Files(), convs),
		unread:   unread,
		contacts: contacts,
		sync:     NewSyncService(msgRepo, convs, unread, contacts),
	}
}

func (e *env) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Name: name, Email: name + "@example.com", CreatedAt: time.Now()}
	if err := e.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("creating user %s: %v", name, err)
	}
	return u.ID
}

func (e *env) send(t *testing.T, from, to uuid.UUID, body string) *domain.Message {
	t.Helper()
	msg, err := e.messages.Send(context.Background(), from, SendInput{RecipientID: to, Body: body})
	if err != nil {
		t.Fatalf("send %q: %v", body, err)
	}
	return msg
}

func bodies(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Body != nil {
			out = append(out, *m.Body)
		}
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGetOrCreateIsSymmetric(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")

	ab, err := e.convs.GetOrCreate(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := e.convs.GetOrCreate(ctx, b, a)
	if err != nil {
		t.Fatal(err)
	}
	if ab.ID != ba.ID {
		t.Fatalf("GetOrCreate(a,b) = %s, GetOrCreate(b,a) = %s", ab.ID, ba.ID)
	}
	if ab.User1ID.String() >= ab.User2ID.String() {
		t.Fatalf("pair not canonical: %s, %s", ab.User1ID, ab.User2ID)
	}
}

func TestGetOrCreateRejectsSelf(t *testing.T) {
	e := newEnv(t)
	a := e.user(t, "alice")
	if _, err := e.convs.GetOrCreate(context.Background(), a, a); !errors.Is(err, ErrInvalidParticipants) {
		t.Fatalf("err = %v, want ErrInvalidParticipants", err)
	}
}

func TestGetOrCreateConcurrentCallersConverge(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "alice"), e.user(t, "bob")

	const n = 32
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := a, b
			if i%2 == 1 {
				x, y = b, a
			}
			conv, err := e.convs.GetOrCreate(context.Background(), x, y)
			errs[i] = err
			if conv != nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("caller %d got %s, caller 0 got %s", i, ids[i], ids[0])
		}
	}

	convs, err := e.convs.List(context.Background(), a, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 {
		t.Fatalf("alice has %d conversations, want 1", len(convs))
	}
}

func TestSendValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")

	tests := []struct {
		name  string
		input SendInput
		want  error
	}{
		{"missing recipient", SendInput{Body: "hi"}, ErrMissingRecipient},
		{"self", SendInput{RecipientID: a, Body: "hi"}, ErrInvalidParticipants},
		{"blank body", SendInput{RecipientID: b, Body: "   "}, ErrEmptyMessage},
		{"unknown recipient", SendInput{RecipientID: uuid.New(), Body: "hi"}, ErrUserNotFound},
		{"file without storage", SendInput{RecipientID: b, File: &domain.Upload{Name: "a.png"}}, ErrUploadsDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.messages.Send(ctx, a, tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSendTrimsBodyAndRecordsLastMessage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")

	msg := e.send(t, a, b, "  hello  ")
	if msg.Body == nil || *msg.Body != "hello" {
		t.Fatalf("body = %v", msg.Body)
	}
	if msg.Type != domain.MessageTypeText {
		t.Fatalf("type = %q", msg.Type)
	}
	if msg.SenderName != "alice" {
		t.Fatalf("sender name = %q", msg.SenderName)
	}

	conv, err := e.convs.Get(ctx, b, msg.ConversationID)
	if err != nil {
		t.Fatal(err)
	}
	if conv.LastMessageID == nil || *conv.LastMessageID != msg.ID {
		t.Fatalf("last message id = %v, want %s", conv.LastMessageID, msg.ID)
	}
	if conv.LastMessageAt == nil || !conv.LastMessageAt.Equal(msg.CreatedAt) {
		t.Fatalf("last message at = %v, want %v", conv.LastMessageAt, msg.CreatedAt)
	}
}

type fakeStorage struct {
	e    *env
	mime string
}

func (f *fakeStorage) Store(ctx context.Context, upload domain.Upload, ownerID uuid.UUID) (*domain.File, error) {
	file := &domain.File{
		ID:           uuid.New(),
		OriginalName: upload.Name,
		StoredName:   "stored-" + upload.Name,
		MimeType:     f.mime,
		Size:         upload.Size,
		UploadedBy:   ownerID,
		CreatedAt:    time.Now(),
	}
	if err := f.e.store.Files().Create(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

func TestSendFileDerivesTypeFromMIME(t *testing.T) {
	e := newEnv(t)
	e.messages.SetStorage(&fakeStorage{e: e, mime: "image/png"})
	a, b := e.user(t, "alice"), e.user(t, "bob")

	msg, err := e.messages.Send(context.Background(), a, SendInput{
		RecipientID: b,
		File:        &domain.Upload{Name: "cat.png", Size: 3, Content: bytes.NewReader([]byte("png"))},
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != domain.MessageTypeImage {
		t.Fatalf("type = %q, want image", msg.Type)
	}
	if msg.Body != nil {
		t.Fatalf("body = %q, want nil", *msg.Body)
	}
	if msg.File == nil || msg.File.OriginalName != "cat.png" {
		t.Fatalf("file = %+v", msg.File)
	}
}

func TestAppendUnknownFile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")
	conv, err := e.convs.GetOrCreate(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}

	missing := uuid.New()
	if _, err := e.messages.Append(ctx, conv.ID, a, nil, &missing); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}

func TestVisibilityAfterDeletes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")

	m1 := e.send(t, a, b, "one")
	m2 := e.send(t, a, b, "two")
	e.send(t, b, a, "three")
	convID := m1.ConversationID

	// Alice hides her own message
	scope, err := e.messages.SetDeleted(ctx, m1.ID, a, false)
	if err != nil || scope != domain.DeleteScopeSelf {
		t.Fatalf("SetDeleted = %q, %v", scope, err)
	}

	// Bob cannot delete Alice's message for everyone
	if _, err := e.messages.SetDeleted(ctx, m2.ID, b, true); !errors.Is(err, ErrDeleteForAllNotSender) {
		t.Fatalf("err = %v, want ErrDeleteForAllNotSender", err)
	}

	listA, err := e.messages.ListVisible(ctx, a, convID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := bodies(listA.Messages); !equal(got, []string{"two", "three"}) {
		t.Fatalf("alice sees %v", got)
	}
	listB, err := e.messages.ListVisible(ctx, b, convID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := bodies(listB.Messages); !equal(got, []string{"one", "two", "three"}) {
		t.Fatalf("bob sees %v", got)
	}

	scope, err = e.messages.SetDeleted(ctx, m2.ID, a, true)
	if err != nil || scope != domain.DeleteScopeEveryone {
		t.Fatalf("SetDeleted for everyone = %q, %v", scope, err)
	}
	listB, err = e.messages.ListVisible(ctx, b, convID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := bodies(listB.Messages); !equal(got, []string{"one", "three"}) {
		t.Fatalf("bob sees %v after delete for everyone", got)
	}

	// Deleting again is not an error
	if _, err := e.messages.SetDeleted(ctx, m1.ID, a, false); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestSetDeletedErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b, c := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol")
	m := e.send(t, a, b, "secret")

	if _, err := e.messages.SetDeleted(ctx, uuid.New(), a, false); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("err = %v, want ErrMessageNotFound", err)
	}
	if _, err := e.messages.SetDeleted(ctx, m.ID, c, false); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
}

func TestListVisiblePaging(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")

	var convID uuid.UUID
	for _, body := range []string{"1", "2", "3", "4", "5"} {
		convID = e.send(t, a, b, body).ConversationID
	}

	page, err := e.messages.ListVisible(ctx, b, convID, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := bodies(page.Messages); !equal(got, []string{"4", "5"}) || !page.HasMore {
		t.Fatalf("first page = %v has_more=%v", got, page.HasMore)
	}

	page, err = e.messages.ListVisible(ctx, b, convID, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got := bodies(page.Messages); !equal(got, []string{"1"}) || page.HasMore {
		t.Fatalf("last page = %v has_more=%v", got, page.HasMore)
	}

	page, err = e.messages.ListVisible(ctx, b, convID, 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if page.Messages == nil || len(page.Messages) != 0 {
		t.Fatalf("past the end = %v", page.Messages)
	}

	c := e.user(t, "carol")
	if _, err := e.messages.ListVisible(ctx, c, convID, 2, 0); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
	if _, err := e.messages.ListVisible(ctx, b, uuid.New(), 2, 0); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")

	m := e.send(t, a, b, "one")
	e.send(t, a, b, "two")
	e.send(t, b, a, "reply")

	n, err := e.messages.MarkRead(ctx, m.ConversationID, b)
	if err != nil || n != 2 {
		t.Fatalf("first MarkRead = %d, %v; want 2", n, err)
	}
	n, err = e.messages.MarkRead(ctx, m.ConversationID, b)
	if err != nil || n != 0 {
		t.Fatalf("second MarkRead = %d, %v; want 0", n, err)
	}

	count, err := e.unread.Count(ctx, b)
	if err != nil || count != 0 {
		t.Fatalf("bob unread = %d, %v", count, err)
	}
	// Bob reading does not touch Alice's unread reply
	count, err = e.unread.Count(ctx, a)
	if err != nil || count != 1 {
		t.Fatalf("alice unread = %d, %v", count, err)
	}
}

func TestUnreadTotalsMatchPerConversation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b, c := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol")

	e.send(t, b, a, "b1")
	m := e.send(t, b, a, "b2")
	e.send(t, c, a, "c1")
	e.send(t, a, c, "mine")

	// Receiver-side delete removes the message from the count
	if _, err := e.messages.SetDeleted(ctx, m.ID, a, false); err != nil {
		t.Fatal(err)
	}

	total, err := e.unread.Count(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	per, err := e.unread.ByConversation(ctx, a)
	if err != nil {
		t.Fatal(err)
	}

	sum := 0
	for _, n := range per {
		sum += n
	}
	if total != 2 || sum != total {
		t.Fatalf("total = %d, sum = %d, per = %v", total, sum, per)
	}
}

func TestPollDeliversOnlyOthersMessages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")

	start, _ := e.store.Messages().Now(ctx)
	e.send(t, a, b, "from alice")
	e.send(t, b, a, "from bob")

	res, err := e.sync.Poll(ctx, b, &start, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := bodies(res.NewMessages); !equal(got, []string{"from alice"}) {
		t.Fatalf("bob polled %v", got)
	}
	if res.UnreadCount != 1 {
		t.Fatalf("unread = %d", res.UnreadCount)
	}

	// Feeding the timestamp back yields nothing new
	next, err := e.sync.Poll(ctx, b, &res.Timestamp, nil)
	if err != nil {
		t.Fatal(err)
	}
	if next.NewMessages == nil || len(next.NewMessages) != 0 {
		t.Fatalf("second poll = %v", bodies(next.NewMessages))
	}
	if next.OnlineContacts == nil {
		t.Fatal("online contacts should be an empty list, not nil")
	}

	e.send(t, a, b, "later")
	next, err = e.sync.Poll(ctx, b, &res.Timestamp, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := bodies(next.NewMessages); !equal(got, []string{"later"}) {
		t.Fatalf("third poll = %v", got)
	}
}

func TestPollScopedToConversation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b, c := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol")

	start, _ := e.store.Messages().Now(ctx)
	fromB := e.send(t, b, a, "from bob")
	e.send(t, c, a, "from carol")

	res, err := e.sync.Poll(ctx, a, &start, &fromB.ConversationID)
	if err != nil {
		t.Fatal(err)
	}
	if got := bodies(res.NewMessages); !equal(got, []string{"from bob"}) {
		t.Fatalf("scoped poll = %v", got)
	}

	if _, err := e.sync.Poll(ctx, c, &start, &fromB.ConversationID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
	if _, err := e.sync.Poll(ctx, a, nil, nil); !errors.Is(err, ErrMissingSince) {
		t.Fatalf("err = %v, want ErrMissingSince", err)
	}
}

func TestContactAdd(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")

	name := "  Bobby  "
	contact, err := e.contacts.Add(ctx, a, b, &name)
	if err != nil {
		t.Fatal(err)
	}
	if contact.ContactName == nil || *contact.ContactName != "Bobby" {
		t.Fatalf("contact name = %v", contact.ContactName)
	}

	if _, err := e.contacts.Add(ctx, a, b, nil); !errors.Is(err, ErrDuplicateContact) {
		t.Fatalf("err = %v, want ErrDuplicateContact", err)
	}
	if _, err := e.contacts.Add(ctx, a, a, nil); !errors.Is(err, ErrNoSelfContact) {
		t.Fatalf("err = %v, want ErrNoSelfContact", err)
	}
	if _, err := e.contacts.Add(ctx, a, uuid.New(), nil); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}

	// Contacts are directed
	if _, err := e.contacts.Add(ctx, b, a, nil); err != nil {
		t.Fatalf("reverse contact: %v", err)
	}
}

func TestContactDirectoryAndOnline(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b, c := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol")

	if _, err := e.contacts.Add(ctx, a, b, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.auth.Touch(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := e.auth.Touch(ctx, c); err != nil {
		t.Fatal(err)
	}

	dir, err := e.contacts.List(ctx, a, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(dir) != 2 {
		t.Fatalf("directory has %d entries, want 2", len(dir))
	}
	for _, entry := range dir {
		if entry.ID == a {
			t.Fatal("directory includes the caller")
		}
		if entry.IsContact != (entry.ID == b) {
			t.Fatalf("entry %s is_contact = %v", entry.Name, entry.IsContact)
		}
	}

	dir, err = e.contacts.List(ctx, a, "CAR")
	if err != nil {
		t.Fatal(err)
	}
	if len(dir) != 1 || dir[0].ID != c {
		t.Fatalf("search = %+v", dir)
	}

	// Carol is online but not a contact
	online, err := e.contacts.Online(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(online) != 1 || online[0].ID != b {
		t.Fatalf("online = %+v", online)
	}

	if err := e.auth.Logout(ctx, b); err != nil {
		t.Fatal(err)
	}
	online, err = e.contacts.Online(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(online) != 0 {
		t.Fatalf("online after logout = %+v", online)
	}
}

func TestPresenceExpires(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")
	if _, err := e.contacts.Add(ctx, a, b, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.auth.Touch(ctx, b); err != nil {
		t.Fatal(err)
	}

	e.clock.ticks.Add(int64(6 * time.Minute / time.Millisecond))

	online, err := e.contacts.Online(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(online) != 0 {
		t.Fatalf("stale presence still online: %+v", online)
	}
}

func TestConversationListOrderAndSummary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b, c := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol")

	e.send(t, b, a, "old")
	e.send(t, c, a, "new")

	convs, err := e.convs.List(ctx, a, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations", len(convs))
	}
	if convs[0].OtherUserID != c || convs[1].OtherUserID != b {
		t.Fatalf("order = %s, %s", convs[0].OtherUserName, convs[1].OtherUserName)
	}
	if convs[0].LastMessageBody == nil || *convs[0].LastMessageBody != "new" {
		t.Fatalf("last message = %v", convs[0].LastMessageBody)
	}
	if convs[0].UnreadCount != 1 {
		t.Fatalf("unread = %d", convs[0].UnreadCount)
	}

	convs, err = e.convs.List(ctx, a, "bo")
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].OtherUserID != b {
		t.Fatalf("search = %+v", convs)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultPageSize},
		{-5, DefaultPageSize},
		{10, 10},
		{MaxPageSize + 1, MaxPageSize},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.auth.Register(ctx, RegisterInput{Name: "Alice", Email: "Alice@Example.com", Password: "hunter22"})
	if err != nil {
		t.Fatal(err)
	}
	if res.AccessToken == "" || res.User.Email != "alice@example.com" {
		t.Fatalf("register = %+v", res)
	}

	if _, err := e.auth.Register(ctx, RegisterInput{Name: "Other", Email: "alice@example.com", Password: "x"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}

	if _, err := e.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCreds) {
		t.Fatalf("err = %v, want ErrInvalidCreds", err)
	}
	if _, err := e.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "hunter22"}); !errors.Is(err, ErrInvalidCreds) {
		t.Fatalf("err = %v, want ErrInvalidCreds", err)
	}

	login, err := e.auth.Login(ctx, LoginInput{Email: "ALICE@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatal(err)
	}
	if login.User.ID != res.User.ID || !login.User.IsOnline {
		t.Fatalf("login = %+v", login.User)
	}
}

func TestPollRespectsReceiverHide(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.user(t, "alice"), e.user(t, "bob")

	start, _ := e.store.Messages().Now(ctx)
	hidden := e.send(t, a, b, "hidden")
	e.send(t, a, b, "kept")

	if _, err := e.messages.SetDeleted(ctx, hidden.ID, b, false); err != nil {
		t.Fatal(err)
	}

	res, err := e.sync.Poll(ctx, b, &start, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := bodies(res.NewMessages); !equal(got, []string{"kept"}) {
		t.Fatalf("bob polled %v", got)
	}
	if res.UnreadCount != 1 {
		t.Fatalf("unread = %d, want 1", res.UnreadCount)
	}

	// Scoped to the conversation the result is the same
	res, err = e.sync.Poll(ctx, b, &start, &hidden.ConversationID)
	if err != nil {
		t.Fatal(err)
	}
	if got := bodies(res.NewMessages); !equal(got, []string{"kept"}) {
		t.Fatalf("scoped poll %v", got)
	}
}

func TestPollTimestampsAreUTC(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	wib := time.FixedZone("WIB", 7*60*60)
	e.store.SetClock(func() time.Time { return e.clock.Now().In(wib) })
	a, b := e.user(t, "alice"), e.user(t, "bob")

	since := e.clock.base
	msg := e.send(t, a, b, "hi")
	if msg.CreatedAt.Location() != time.UTC {
		t.Fatalf("created_at zone = %v", msg.CreatedAt.Location())
	}

	res, err := e.sync.Poll(ctx, b, &since, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp zone = %v", res.Timestamp.Location())
	}
	if len(res.NewMessages) != 1 || res.NewMessages[0].CreatedAt.Location() != time.UTC {
		t.Fatalf("new messages = %+v", res.NewMessages)
	}
}

// orderingStorage records whether the conversation existed when the file was
// stored.
type orderingStorage struct {
	fakeStorage
	pairExisted bool
	lo, hi      uuid.UUID
	skipRecord  bool
}

func (s *orderingStorage) Store(ctx context.Context, upload domain.Upload, ownerID uuid.UUID) (*domain.File, error) {
	conv, err := s.e.store.Conversations().GetByUsers(ctx, s.lo, s.hi)
	if err != nil {
		return nil, err
	}
	s.pairExisted = conv != nil
	if s.skipRecord {
		return &domain.File{ID: uuid.New(), MimeType: s.mime}, nil
	}
	return s.fakeStorage.Store(ctx, upload, ownerID)
}

func TestSendStoresFileAfterConversation(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "alice"), e.user(t, "bob")
	lo, hi := domain.PairKey(a, b)
	fs := &orderingStorage{fakeStorage: fakeStorage{e: e, mime: "application/pdf"}, lo: lo, hi: hi}
	e.messages.SetStorage(fs)

	upload := &domain.Upload{Name: "doc.pdf", Size: 4, Content: bytes.NewReader([]byte("%PDF"))}
	msg, err := e.messages.Send(context.Background(), a, SendInput{RecipientID: b, File: upload})
	if err != nil {
		t.Fatal(err)
	}
	if !fs.pairExisted {
		t.Fatal("file stored before the conversation existed")
	}
	if msg.Type != domain.MessageTypeFile {
		t.Fatalf("type = %q", msg.Type)
	}
}

func TestSendSurfacesAppendFailureAfterUpload(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "alice"), e.user(t, "bob")
	lo, hi := domain.PairKey(a, b)
	e.messages.SetStorage(&orderingStorage{fakeStorage: fakeStorage{e: e, mime: "image/png"}, lo: lo, hi: hi, skipRecord: true})

	upload := &domain.Upload{Name: "a.png", Size: 3, Content: bytes.NewReader([]byte("png"))}
	if _, err := e.messages.Send(context.Background(), a, SendInput{RecipientID: b, File: upload}); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}
