package flows

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/jwt"
)

type flowFixture struct {
	mgr   *jwt.Manager
	store *cache.MemoryStore
	users map[string]*UserState
	mu    sync.Mutex
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	mgr, err := jwt.NewManager(jwt.Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return &flowFixture{
		mgr:   mgr,
		store: cache.NewMemoryStore(),
		users: map[string]*UserState{"u-1": {ID: "u-1", AuthVersion: 1}},
	}
}

func (f *flowFixture) issueDeps() IssueDeps {
	return IssueDeps{
		NewJTI:      internal.NewJTI,
		NewCSRF:     internal.NewCSRFToken,
		SignAccess:  f.mgr.CreateAccess,
		SignRefresh: f.mgr.CreateRefresh,
		RefreshTTL:  time.Hour,
		Cache:       f.store,
	}
}

func (f *flowFixture) refreshDeps() RefreshDeps {
	return RefreshDeps{
		ParseRefresh: f.mgr.ParseRefresh,
		LoadUser: func(_ context.Context, id string) (*UserState, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			u, ok := f.users[id]
			if !ok {
				return nil, nil
			}
			cp := *u
			return &cp, nil
		},
		Cache: f.store,
		Issue: f.issueDeps(),
	}
}

func (f *flowFixture) issue(t *testing.T, origin string) IssueResult {
	t.Helper()
	res := RunIssue(context.Background(), IssueInput{UserID: "u-1", AuthVersion: 1, Origin: origin}, f.issueDeps())
	if res.Err != nil {
		t.Fatalf("issue: %v", res.Err)
	}
	return res
}

func TestIssuePersistsSessionAndCSRF(t *testing.T) {
	f := newFlowFixture(t)
	res := f.issue(t, "web")
	ctx := context.Background()

	record, err := f.store.Get(ctx, cache.RefreshKey(res.JTI))
	if err != nil {
		t.Fatalf("session record: %v", err)
	}
	if owner, _, err := decodeSession(record); err != nil || owner != "u-1" {
		t.Fatalf("session record = %q, %v", record, err)
	}
	csrf, err := f.store.Get(ctx, cache.CSRFKey(res.JTI))
	if err != nil || csrf != res.CSRFToken {
		t.Fatalf("csrf record = %q, %v", csrf, err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
}

func TestRefreshIsSingleUse(t *testing.T) {
	f := newFlowFixture(t)
	issued := f.issue(t, "mobile")
	ctx := context.Background()

	first := RunRefresh(ctx, RefreshInput{RefreshToken: issued.RefreshToken}, f.refreshDeps())
	if first.Failure != RefreshFailureNone {
		t.Fatalf("first refresh failed: %v (%v)", first.Failure, first.Err)
	}
	if first.Issued.JTI == issued.JTI {
		t.Fatal("expected a fresh jti")
	}

	second := RunRefresh(ctx, RefreshInput{RefreshToken: issued.RefreshToken}, f.refreshDeps())
	if second.Failure != RefreshFailureSessionMissing {
		t.Fatalf("expected replay to be denied, got %v", second.Failure)
	}
}

func TestRefreshConcurrentSingleWinner(t *testing.T) {
	f := newFlowFixture(t)
	issued := f.issue(t, "mobile")

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := RunRefresh(context.Background(), RefreshInput{RefreshToken: issued.RefreshToken}, f.refreshDeps())
			if res.Failure == RefreshFailureNone {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestWebRefreshRequiresMatchingCSRF(t *testing.T) {
	ctx := context.Background()

	f := newFlowFixture(t)
	issued := f.issue(t, "web")
	res := RunRefresh(ctx, RefreshInput{RefreshToken: issued.RefreshToken}, f.refreshDeps())
	if res.Failure != RefreshFailureCSRFMissing {
		t.Fatalf("expected csrf missing, got %v", res.Failure)
	}
	// The session is consumed even though the request was denied.
	res = RunRefresh(ctx, RefreshInput{RefreshToken: issued.RefreshToken, CSRFToken: issued.CSRFToken}, f.refreshDeps())
	if res.Failure != RefreshFailureSessionMissing {
		t.Fatalf("expected consumed session, got %v", res.Failure)
	}

	issued = f.issue(t, "web")
	res = RunRefresh(ctx, RefreshInput{RefreshToken: issued.RefreshToken, CSRFToken: "wrong"}, f.refreshDeps())
	if res.Failure != RefreshFailureCSRFMismatch {
		t.Fatalf("expected csrf mismatch, got %v", res.Failure)
	}
	if _, err := f.store.Get(ctx, cache.CSRFKey(issued.JTI)); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected csrf record deleted, got %v", err)
	}

	issued = f.issue(t, "web")
	res = RunRefresh(ctx, RefreshInput{RefreshToken: issued.RefreshToken, CSRFToken: issued.CSRFToken}, f.refreshDeps())
	if res.Failure != RefreshFailureNone {
		t.Fatalf("expected success, got %v (%v)", res.Failure, res.Err)
	}
	if res.Origin != "web" {
		t.Fatalf("origin must carry over, got %q", res.Origin)
	}
}

func TestMobileRefreshIgnoresCSRFButDeletesIt(t *testing.T) {
	f := newFlowFixture(t)
	issued := f.issue(t, "mobile")
	ctx := context.Background()

	res := RunRefresh(ctx, RefreshInput{RefreshToken: issued.RefreshToken, CSRFToken: "anything"}, f.refreshDeps())
	if res.Failure != RefreshFailureNone {
		t.Fatalf("expected success, got %v", res.Failure)
	}
	if _, err := f.store.Get(ctx, cache.CSRFKey(issued.JTI)); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected old csrf record deleted, got %v", err)
	}
}

func TestRefreshDeniedForBannedOrMissingUser(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]*UserState)
		want   RefreshFailureKind
	}{
		{"banned", func(u map[string]*UserState) { u["u-1"].Banned = true; u["u-1"].AuthVersion = 2 }, RefreshFailureBanned},
		{"missing", func(u map[string]*UserState) { delete(u, "u-1") }, RefreshFailureUserMissing},
	}
	for _, tc := range cases {
		f := newFlowFixture(t)
		issued := f.issue(t, "mobile")
		tc.mutate(f.users)

		res := RunRefresh(context.Background(), RefreshInput{RefreshToken: issued.RefreshToken}, f.refreshDeps())
		if res.Failure != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, res.Failure)
		}
	}
}

func TestRefreshIssuesAgainstLiveVersion(t *testing.T) {
	f := newFlowFixture(t)
	issued := f.issue(t, "mobile")
	f.users["u-1"].AuthVersion = 5

	res := RunRefresh(context.Background(), RefreshInput{RefreshToken: issued.RefreshToken}, f.refreshDeps())
	if res.Failure != RefreshFailureNone {
		t.Fatalf("expected success, got %v (%v)", res.Failure, res.Err)
	}
	claims, err := f.mgr.ParseAccess(res.Issued.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.AuthVersion != 5 {
		t.Fatalf("expected live version 5, got %d", claims.AuthVersion)
	}
}

func TestRefreshDeniedForRevokedSessions(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	before := f.issue(t, "mobile")

	if err := RevokeSessions(ctx, f.store, "u-1", time.Now(), time.Hour); err != nil {
		t.Fatalf("revoke sessions: %v", err)
	}
	res := RunRefresh(ctx, RefreshInput{RefreshToken: before.RefreshToken}, f.refreshDeps())
	if res.Failure != RefreshFailureRevoked {
		t.Fatalf("expected revoked, got %v", res.Failure)
	}

	after := RunIssue(ctx, IssueInput{UserID: "u-1", AuthVersion: 1, Origin: "mobile"},
		IssueDeps{
			NewJTI:      internal.NewJTI,
			NewCSRF:     internal.NewCSRFToken,
			SignAccess:  f.mgr.CreateAccess,
			SignRefresh: f.mgr.CreateRefresh,
			RefreshTTL:  time.Hour,
			Cache:       f.store,
			Now:         func() time.Time { return time.Now().Add(time.Second) },
		})
	if after.Err != nil {
		t.Fatalf("issue: %v", after.Err)
	}
	res = RunRefresh(ctx, RefreshInput{RefreshToken: after.RefreshToken}, f.refreshDeps())
	if res.Failure != RefreshFailureNone {
		t.Fatalf("later session must refresh, got %v", res.Failure)
	}
}

func TestSessionRecordRoundTrip(t *testing.T) {
	at := time.Unix(1700000000, 42)
	owner, issuedAt, err := decodeSession(encodeSession("u-1", at))
	if err != nil || owner != "u-1" || issuedAt != at.UnixNano() {
		t.Fatalf("round trip = %q, %d, %v", owner, issuedAt, err)
	}
	for _, bad := range []string{"", "u-1", "|123", "u-1|x"} {
		if _, _, err := decodeSession(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestRefreshRejectsForeignSessionOwner(t *testing.T) {
	f := newFlowFixture(t)
	issued := f.issue(t, "mobile")
	ctx := context.Background()
	_ = f.store.Set(ctx, cache.RefreshKey(issued.JTI), encodeSession("u-2", time.Now()), time.Hour)

	res := RunRefresh(ctx, RefreshInput{RefreshToken: issued.RefreshToken}, f.refreshDeps())
	if res.Failure != RefreshFailureSubjectMismatch {
		t.Fatalf("expected subject mismatch, got %v", res.Failure)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newFlowFixture(t)
	issued := f.issue(t, "mobile")

	res := RunRefresh(context.Background(), RefreshInput{RefreshToken: issued.AccessToken}, f.refreshDeps())
	if res.Failure != RefreshFailureDecode {
		t.Fatalf("expected decode failure, got %v", res.Failure)
	}
}

func TestRevokeDeletesBothRecordsAndIgnoresGarbage(t *testing.T) {
	f := newFlowFixture(t)
	issued := f.issue(t, "web")
	ctx := context.Background()
	deps := RevokeDeps{ParseRefresh: f.mgr.ParseRefresh, Cache: f.store}

	res := RunRevoke(ctx, issued.RefreshToken, deps)
	if res.Skipped || res.Err != nil {
		t.Fatalf("unexpected revoke result %+v", res)
	}
	if f.store.Len() != 0 {
		t.Fatalf("expected empty cache, have %d keys", f.store.Len())
	}

	if res := RunRevoke(ctx, "not-a-token", deps); !res.Skipped || res.Err != nil {
		t.Fatalf("garbage token must be a silent no-op, got %+v", res)
	}
	if res := RunRevoke(ctx, issued.RefreshToken, deps); res.Err != nil {
		t.Fatalf("second revoke must not fail: %v", res.Err)
	}
}

func TestCheckUser(t *testing.T) {
	if got := CheckUser(1, nil); got != AccessFailureUserMissing {
		t.Fatalf("nil user = %v", got)
	}
	if got := CheckUser(1, &UserState{AuthVersion: 2, Banned: true}); got != AccessFailureBanned {
		t.Fatalf("banned user = %v", got)
	}
	if got := CheckUser(1, &UserState{AuthVersion: 2}); got != AccessFailureStale {
		t.Fatalf("stale user = %v", got)
	}
	if got := CheckUser(2, &UserState{AuthVersion: 2}); got != AccessFailureNone {
		t.Fatalf("current user = %v", got)
	}
}
