package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/playmaxx/playmaxx/internal/gateway"
	"github.com/playmaxx/playmaxx/internal/logging"
	"github.com/playmaxx/playmaxx/internal/session"
)

type fakeGateway struct {
	calls atomic.Int32

	landing      func() (gateway.Response, error)
	login        func(mobile, password, push string) (gateway.Response, error)
	validateMpin func(userToken, pin, push string) (gateway.Response, error)
	clearLogin   func(t gateway.Tokens) (gateway.Response, error)
	clearMpin    func(t gateway.Tokens) (gateway.Response, error)
}

func success(result string) (gateway.Response, error) {
	return gateway.Response{Status: true, Result: json.RawMessage(result)}, nil
}

func failed(code int, msg string) (gateway.Response, error) {
	resp := gateway.Response{Status: false, Msg: msg, StatusCode: code}
	return resp, &gateway.Error{Response: resp, Err: fmt.Errorf("http %d", code)}
}

func networkDown() (gateway.Response, error) {
	resp := gateway.Response{Status: false, Msg: gateway.NetworkErrorMessage}
	return resp, &gateway.Error{Response: resp, Err: gateway.ErrNetwork}
}

func (f *fakeGateway) LandingData(context.Context) (gateway.Response, error) {
	f.calls.Add(1)
	if f.landing == nil {
		return networkDown()
	}
	return f.landing()
}

func (f *fakeGateway) Login(_ context.Context, mobile, password, push string) (gateway.Response, error) {
	f.calls.Add(1)
	if f.login == nil {
		return success(`{"user_token":"T1","Name":"Asha","MobileNo":"9876543210"}`)
	}
	return f.login(mobile, password, push)
}

func (f *fakeGateway) ValidateMpin(_ context.Context, userToken, pin, push string) (gateway.Response, error) {
	f.calls.Add(1)
	if f.validateMpin == nil {
		return success(`{"pin_token":"P1","banners":[]}`)
	}
	return f.validateMpin(userToken, pin, push)
}

func (f *fakeGateway) ClearLoginSession(_ context.Context, t gateway.Tokens) (gateway.Response, error) {
	f.calls.Add(1)
	if f.clearLogin == nil {
		return success(`true`)
	}
	return f.clearLogin(t)
}

func (f *fakeGateway) ClearMpinSession(_ context.Context, t gateway.Tokens) (gateway.Response, error) {
	f.calls.Add(1)
	if f.clearMpin == nil {
		return success(`true`)
	}
	return f.clearMpin(t)
}

// countingKV records writes so tests can assert that reads stay read-only.
type countingKV struct {
	session.KV
	writes atomic.Int32
}

func (k *countingKV) Set(ctx context.Context, key string, value []byte) error {
	k.writes.Add(1)
	return k.KV.Set(ctx, key, value)
}

func (k *countingKV) Delete(ctx context.Context, keys ...string) error {
	k.writes.Add(1)
	return k.KV.Delete(ctx, keys...)
}

func newController(t *testing.T, api *fakeGateway) (*Controller, session.Store) {
	t.Helper()
	store := session.NewStore(session.NewMemoryKV())
	c := New(store, api, logging.Discard())
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c, store
}

func verified(t *testing.T, c *Controller) {
	t.Helper()
	ctx := context.Background()
	if _, err := c.Login(ctx, "9876543210", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := c.ValidateMpin(ctx, "1234"); err != nil {
		t.Fatalf("validate mpin: %v", err)
	}
	if c.Stage() != session.StageVerified {
		t.Fatalf("expected verified, got %s", c.Stage())
	}
}

func TestLoginEstablishesAuthenticated(t *testing.T) {
	c, store := newController(t, &fakeGateway{})
	ctx := context.Background()

	p, err := c.Login(ctx, "9876543210", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if p.UserToken != "T1" || c.Stage() != session.StageAuthenticated {
		t.Fatalf("unexpected state: token=%q stage=%s", p.UserToken, c.Stage())
	}
	stored, ok, err := store.PrimarySession(ctx)
	if err != nil || !ok || stored.UserToken != "T1" {
		t.Fatalf("persisted primary: %+v ok=%v err=%v", stored, ok, err)
	}
	if _, ok, _ := store.ElevatedSession(ctx); ok {
		t.Fatalf("no elevated session may exist after login")
	}
}

func TestLoginSendsPushToken(t *testing.T) {
	var gotPush string
	api := &fakeGateway{login: func(_, _, push string) (gateway.Response, error) {
		gotPush = push
		return success(`{"user_token":"T1"}`)
	}}
	c, store := newController(t, api)
	store.SetFCMToken(context.Background(), "fcm-9")

	if _, err := c.Login(context.Background(), "9876543210", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if gotPush != "fcm-9" {
		t.Fatalf("expected push token to be forwarded, got %q", gotPush)
	}
}

func TestLoginDropsLeftoverElevatedSession(t *testing.T) {
	c, store := newController(t, &fakeGateway{})
	verified(t, c)

	if _, err := c.Login(context.Background(), "9876543210", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if c.Stage() != session.StageAuthenticated {
		t.Fatalf("expected authenticated, got %s", c.Stage())
	}
	if _, ok, _ := store.ElevatedSession(context.Background()); ok {
		t.Fatalf("elevated record should be cleared by a new login")
	}
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	api := &fakeGateway{}
	c, _ := newController(t, api)

	for _, tc := range []struct{ mobile, password string }{{"", "secret"}, {"9876543210", " "}} {
		_, err := c.Login(context.Background(), tc.mobile, tc.password)
		if KindOf(err) != KindValidation {
			t.Fatalf("expected validation error for %+v, got %v", tc, err)
		}
	}
	if api.calls.Load() != 0 {
		t.Fatalf("validation failures must not reach the network")
	}
}

func TestLoginFailureKeepsSession(t *testing.T) {
	cases := []struct {
		name string
		resp func() (gateway.Response, error)
		kind Kind
		msg  string
	}{
		{"api message", func() (gateway.Response, error) { return failed(400, "Invalid password") }, KindAPI, "Invalid password"},
		{"api without message", func() (gateway.Response, error) { return gateway.Response{Status: false}, nil }, KindAPI, MessageLoginFailed},
		{"network", networkDown, KindNetwork, gateway.NetworkErrorMessage},
		{"empty token", func() (gateway.Response, error) { return success(`{"user_token":""}`) }, KindAPI, MessageLoginFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeGateway{login: func(string, string, string) (gateway.Response, error) { return tc.resp() }}
			c, store := newController(t, api)

			_, err := c.Login(context.Background(), "9876543210", "secret")
			if KindOf(err) != tc.kind || MessageOf(err) != tc.msg {
				t.Fatalf("expected %s %q, got %v", tc.kind, tc.msg, err)
			}
			if c.Stage() != session.StageAnonymous {
				t.Fatalf("failed login must not change the stage")
			}
			if _, ok, _ := store.PrimarySession(context.Background()); ok {
				t.Fatalf("failed login must not persist a session")
			}
		})
	}
}

func TestValidateMpinEstablishesVerified(t *testing.T) {
	var gotToken string
	api := &fakeGateway{validateMpin: func(userToken, pin, _ string) (gateway.Response, error) {
		gotToken = userToken
		return success(`{"pin_token":"P1","banners":[]}`)
	}}
	c, store := newController(t, api)
	ctx := context.Background()
	if _, err := c.Login(ctx, "9876543210", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	e, err := c.ValidateMpin(ctx, "1234")
	if err != nil {
		t.Fatalf("validate mpin: %v", err)
	}
	if gotToken != "T1" {
		t.Fatalf("expected login token to be sent, got %q", gotToken)
	}
	if e.PinToken != "P1" || c.Stage() != session.StageVerified {
		t.Fatalf("unexpected state: %+v stage=%s", e, c.Stage())
	}
	stored, ok, _ := store.ElevatedSession(ctx)
	if !ok || stored.PinToken != "P1" {
		t.Fatalf("persisted elevated session: %+v ok=%v", stored, ok)
	}
}

func TestValidateMpinNormalizesResultForms(t *testing.T) {
	cases := []struct {
		name    string
		result  string
		token   string
		banners int
	}{
		{"bare string", `"P2"`, "P2", 0},
		{"bare number", `4417`, "4417", 0},
		{"object", `{"pin_token":"P3","banners":[{"Id":1,"Title":"a","Image":"a.png"}]}`, "P3", 1},
		{"object without banners", `{"pin_token":"P4"}`, "P4", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeGateway{validateMpin: func(string, string, string) (gateway.Response, error) { return success(tc.result) }}
			c, _ := newController(t, api)
			if _, err := c.Login(context.Background(), "9876543210", "secret"); err != nil {
				t.Fatalf("login: %v", err)
			}
			e, err := c.ValidateMpin(context.Background(), "1234")
			if err != nil {
				t.Fatalf("validate mpin: %v", err)
			}
			if e.PinToken != tc.token || e.Banners == nil || len(e.Banners) != tc.banners {
				t.Fatalf("unexpected elevated session: %+v", e)
			}
		})
	}
}

func TestValidateMpinRequiresLogin(t *testing.T) {
	api := &fakeGateway{}
	c, _ := newController(t, api)

	if _, err := c.ValidateMpin(context.Background(), "1234"); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if api.calls.Load() != 0 {
		t.Fatalf("no network call expected without a login session")
	}
}

func TestValidateMpinLoginExpiryLogsOut(t *testing.T) {
	api := &fakeGateway{validateMpin: func(string, string, string) (gateway.Response, error) {
		return failed(401, "Token expired")
	}}
	c, store := newController(t, api)
	ctx := context.Background()
	if _, err := c.Login(ctx, "9876543210", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err := c.ValidateMpin(ctx, "1234")
	var authErr *Error
	if !errors.As(err, &authErr) || authErr.Kind != KindLoginExpired || !authErr.SessionExpired() {
		t.Fatalf("expected login expiry, got %v", err)
	}
	if authErr.Message != MessageSessionExpired {
		t.Fatalf("unexpected message %q", authErr.Message)
	}
	if c.Stage() != session.StageAnonymous {
		t.Fatalf("expected anonymous, got %s", c.Stage())
	}
	if _, ok, _ := store.PrimarySession(ctx); ok {
		t.Fatalf("primary record should be cleared")
	}
}

func TestValidateMpinFailureKeepsStage(t *testing.T) {
	api := &fakeGateway{validateMpin: func(string, string, string) (gateway.Response, error) {
		return failed(0, "Wrong MPIN")
	}}
	c, _ := newController(t, api)
	if _, err := c.Login(context.Background(), "9876543210", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, err := c.ValidateMpin(context.Background(), "0000")
	if KindOf(err) != KindAPI || MessageOf(err) != "Wrong MPIN" {
		t.Fatalf("expected api error, got %v", err)
	}
	if c.Stage() != session.StageAuthenticated {
		t.Fatalf("expected authenticated, got %s", c.Stage())
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	for _, name := range []string{"backend ok", "backend down"} {
		t.Run(name, func(t *testing.T) {
			var sent gateway.Tokens
			api := &fakeGateway{clearLogin: func(tk gateway.Tokens) (gateway.Response, error) {
				sent = tk
				if name == "backend down" {
					return networkDown()
				}
				return success(`true`)
			}}
			c, store := newController(t, api)
			verified(t, c)
			ctx := context.Background()

			if err := c.Logout(ctx); err != nil {
				t.Fatalf("logout: %v", err)
			}
			if sent != (gateway.Tokens{UserToken: "T1", PinToken: "P1"}) {
				t.Fatalf("backend should receive both tokens, got %+v", sent)
			}
			if c.Stage() != session.StageAnonymous {
				t.Fatalf("expected anonymous, got %s", c.Stage())
			}
			if _, ok, _ := store.PrimarySession(ctx); ok {
				t.Fatalf("primary record should be gone")
			}
			if _, ok, _ := store.ElevatedSession(ctx); ok {
				t.Fatalf("elevated record should be gone")
			}
		})
	}
}

func TestLogoutWhenAnonymousSkipsNetwork(t *testing.T) {
	api := &fakeGateway{}
	c, _ := newController(t, api)

	for i := 0; i < 2; i++ {
		if err := c.Logout(context.Background()); err != nil {
			t.Fatalf("logout: %v", err)
		}
	}
	if api.calls.Load() != 0 {
		t.Fatalf("logout without tokens must not call the backend")
	}
}

func TestClearMpinSessionKeepsPrimary(t *testing.T) {
	var cleared atomic.Bool
	api := &fakeGateway{clearMpin: func(gateway.Tokens) (gateway.Response, error) {
		cleared.Store(true)
		return networkDown()
	}}
	c, store := newController(t, api)
	verified(t, c)
	ctx := context.Background()

	if err := c.ClearMpinSession(ctx); err != nil {
		t.Fatalf("clear mpin session: %v", err)
	}
	if !cleared.Load() {
		t.Fatalf("backend should be notified")
	}
	if c.Stage() != session.StageAuthenticated {
		t.Fatalf("expected authenticated, got %s", c.Stage())
	}
	if p, ok, _ := store.PrimarySession(ctx); !ok || p.UserToken != "T1" {
		t.Fatalf("primary must survive, got %+v ok=%v", p, ok)
	}
	if _, ok, _ := store.ElevatedSession(ctx); ok {
		t.Fatalf("elevated record should be gone")
	}
}

func TestLoginExpiryDemotesFromAnyStage(t *testing.T) {
	for _, stage := range []session.Stage{session.StageAuthenticated, session.StageVerified} {
		t.Run(stage.String(), func(t *testing.T) {
			c, store := newController(t, &fakeGateway{})
			ctx := context.Background()
			if _, err := c.Login(ctx, "9876543210", "secret"); err != nil {
				t.Fatalf("login: %v", err)
			}
			if stage == session.StageVerified {
				if _, err := c.ValidateMpin(ctx, "1234"); err != nil {
					t.Fatalf("validate mpin: %v", err)
				}
			}

			d := c.HandleExpiry(ctx, gateway.SignalLoginExpired)
			if !d.Navigate || d.Stage != session.StageAnonymous {
				t.Fatalf("unexpected downgrade: %+v", d)
			}
			if _, ok, _ := store.PrimarySession(ctx); ok {
				t.Fatalf("primary record should be gone")
			}
			if _, ok, _ := store.ElevatedSession(ctx); ok {
				t.Fatalf("elevated record should be gone")
			}
		})
	}
}

func TestConcurrentLoginExpiryNavigatesOnce(t *testing.T) {
	api := &fakeGateway{}
	c, _ := newController(t, api)
	verified(t, c)
	before := api.calls.Load()

	const callers = 16
	var (
		wg        sync.WaitGroup
		navigated atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d := c.HandleExpiry(context.Background(), gateway.SignalLoginExpired)
			if d.Stage != session.StageAnonymous {
				t.Errorf("expected anonymous after expiry, got %s", d.Stage)
			}
			if d.Navigate {
				navigated.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if navigated.Load() != 1 {
		t.Fatalf("expected exactly one navigation, got %d", navigated.Load())
	}
	if c.Stage() != session.StageAnonymous {
		t.Fatalf("expected anonymous, got %s", c.Stage())
	}
	if api.calls.Load() != before {
		t.Fatalf("expiry handling must not call the backend")
	}
}

func TestMpinExpiryDemotesToAuthenticated(t *testing.T) {
	c, store := newController(t, &fakeGateway{})
	verified(t, c)
	ctx := context.Background()

	d := c.HandleExpiry(ctx, gateway.SignalMpinExpired)
	if !d.Navigate || d.Stage != session.StageAuthenticated {
		t.Fatalf("unexpected downgrade: %+v", d)
	}
	if p, ok, _ := store.PrimarySession(ctx); !ok || p.UserToken != "T1" {
		t.Fatalf("primary must survive, got %+v ok=%v", p, ok)
	}
	if _, ok, _ := store.ElevatedSession(ctx); ok {
		t.Fatalf("elevated record should be gone")
	}

	again := c.HandleExpiry(ctx, gateway.SignalMpinExpired)
	if again.Navigate || again.Stage != session.StageAuthenticated {
		t.Fatalf("second 412 must be a no-op, got %+v", again)
	}
	if none := c.HandleExpiry(ctx, gateway.SignalNone); none.Navigate {
		t.Fatalf("no signal must not navigate")
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	kv := &countingKV{KV: session.NewMemoryKV()}
	store := session.NewStore(kv)
	ctx := context.Background()
	store.SetPrimarySession(ctx, session.PrimarySession{UserToken: "T1"})
	store.SetElevatedSession(ctx, session.ElevatedSession{PinToken: "P1"})
	writes := kv.writes.Load()

	api := &fakeGateway{}
	c := New(store, api, logging.Discard())
	if c.Initialized() {
		t.Fatalf("controller must start uninitialized")
	}
	for i := 0; i < 2; i++ {
		if err := c.Initialize(ctx); err != nil {
			t.Fatalf("initialize %d: %v", i, err)
		}
		if c.Stage() != session.StageVerified || !c.Initialized() {
			t.Fatalf("initialize %d: unexpected state %+v", i, c.Snapshot())
		}
	}
	if api.calls.Load() != 0 {
		t.Fatalf("initialize must not call the network")
	}
	if kv.writes.Load() != writes {
		t.Fatalf("initialize must not write to the store")
	}
}

func TestInitializeDropsOrphanElevated(t *testing.T) {
	store := session.NewStore(session.NewMemoryKV())
	ctx := context.Background()
	store.SetElevatedSession(ctx, session.ElevatedSession{PinToken: "P1"})

	c := New(store, &fakeGateway{}, logging.Discard())
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if c.Stage() != session.StageAnonymous {
		t.Fatalf("expected anonymous, got %s", c.Stage())
	}
	if _, ok, _ := store.ElevatedSession(ctx); ok {
		t.Fatalf("orphan elevated record should be removed")
	}
}

func TestInitializeDiscardsCorruptRecord(t *testing.T) {
	kv := session.NewMemoryKV()
	ctx := context.Background()
	kv.Set(ctx, session.KeyLoginToken, []byte(`{broken`))
	kv.Set(ctx, session.KeyMpinToken, []byte(`{"pin_token":"P1"}`))

	c := New(session.NewStore(kv), &fakeGateway{}, logging.Discard())
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("corrupt records should be discarded, got %v", err)
	}
	if c.Stage() != session.StageAnonymous || !c.Initialized() {
		t.Fatalf("unexpected state: %+v", c.Snapshot())
	}
	if _, found, _ := kv.Get(ctx, session.KeyLoginToken); found {
		t.Fatalf("corrupt record should be deleted")
	}
}

// flakyKV fails the next Get of failKey, or every Delete when failDelete is set.
type flakyKV struct {
	session.KV
	failKey    string
	failDelete bool
}

var errDiskTimeout = errors.New("i/o timeout")

func (k *flakyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key != "" && key == k.failKey {
		k.failKey = ""
		return nil, false, errDiskTimeout
	}
	return k.KV.Get(ctx, key)
}

func (k *flakyKV) Delete(ctx context.Context, keys ...string) error {
	if k.failDelete {
		return errDiskTimeout
	}
	return k.KV.Delete(ctx, keys...)
}

func TestInitializeReadFailureKeepsElevated(t *testing.T) {
	kv := &flakyKV{KV: session.NewMemoryKV()}
	store := session.NewStore(kv)
	ctx := context.Background()
	store.SetPrimarySession(ctx, session.PrimarySession{UserToken: "T1"})
	store.SetElevatedSession(ctx, session.ElevatedSession{PinToken: "P1"})
	kv.failKey = session.KeyLoginToken

	c := New(store, &fakeGateway{}, logging.Discard())
	err := c.Initialize(ctx)
	if KindOf(err) != KindStorage || MessageOf(err) != MessageStorageRead {
		t.Fatalf("expected read failure, got %v", err)
	}
	if !errors.Is(err, errDiskTimeout) {
		t.Fatalf("cause should be kept, got %v", err)
	}
	if !c.Initialized() || c.Stage() != session.StageAnonymous {
		t.Fatalf("unexpected state after failed read: %+v", c.Snapshot())
	}
	if e, ok, _ := store.ElevatedSession(ctx); !ok || e.PinToken != "P1" {
		t.Fatalf("elevated record must survive a failed primary read")
	}

	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if c.Stage() != session.StageVerified {
		t.Fatalf("expected verified after retry, got %s", c.Stage())
	}
}

func TestHandleExpiryReportsStoreFailure(t *testing.T) {
	kv := &flakyKV{KV: session.NewMemoryKV()}
	store := session.NewStore(kv)
	ctx := context.Background()
	store.SetPrimarySession(ctx, session.PrimarySession{UserToken: "T1"})
	store.SetElevatedSession(ctx, session.ElevatedSession{PinToken: "P1"})
	c := New(store, &fakeGateway{}, logging.Discard())
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	kv.failDelete = true

	d := c.HandleExpiry(ctx, gateway.SignalMpinExpired)
	if !d.Navigate || d.Stage != session.StageAuthenticated {
		t.Fatalf("unexpected downgrade %+v", d)
	}
	if KindOf(d.Err) != KindStorage || !errors.Is(d.Err, errDiskTimeout) {
		t.Fatalf("expected storage error on downgrade, got %v", d.Err)
	}

	d = c.HandleExpiry(ctx, gateway.SignalLoginExpired)
	if !d.Navigate || d.Stage != session.StageAnonymous || d.Err == nil {
		t.Fatalf("unexpected downgrade %+v", d)
	}
	if c.Stage() != session.StageAnonymous {
		t.Fatalf("memory must be reset even when the store fails")
	}

	kv.failDelete = false
	if d := c.HandleExpiry(ctx, gateway.SignalLoginExpired); d.Navigate || d.Err != nil {
		t.Fatalf("second expiry must be a no-op, got %+v", d)
	}
}

func TestExpireReturnsDowngrade(t *testing.T) {
	c, _ := newController(t, &fakeGateway{})
	verified(t, c)
	ctx := context.Background()
	expired := gateway.Response{Status: false, StatusCode: gateway.StatusLoginExpired}

	d, err := Expire(ctx, c, expired)
	if KindOf(err) != KindLoginExpired || !d.Navigate || d.Signal != gateway.SignalLoginExpired {
		t.Fatalf("first expiry: %+v %v", d, err)
	}
	d, err = Expire(ctx, c, expired)
	if KindOf(err) != KindLoginExpired || d.Navigate {
		t.Fatalf("repeated expiry must not navigate: %+v %v", d, err)
	}
	if d, err := Expire(ctx, c, gateway.Response{Status: true}); err != nil || d.Navigate {
		t.Fatalf("no signal: %+v %v", d, err)
	}
}

func TestLoadLandingDataCachesConfig(t *testing.T) {
	api := &fakeGateway{landing: func() (gateway.Response, error) {
		return success(`{"WhatsappNo":"919800000000","MobileNo":9800000001}`)
	}}
	c, store := newController(t, api)
	ctx := context.Background()

	cfg, err := c.LoadLandingData(ctx)
	if err != nil {
		t.Fatalf("load landing data: %v", err)
	}
	if cfg.WhatsappNo() != "919800000000" || c.Snapshot().MasterConfig.MobileNo() != "9800000001" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, ok, _ := store.MasterConfig(ctx); !ok {
		t.Fatalf("master config should be persisted")
	}
	if c.Stage() != session.StageAnonymous {
		t.Fatalf("landing data must not affect the stage")
	}
}

func TestLoadLandingDataFailure(t *testing.T) {
	c, _ := newController(t, &fakeGateway{})
	if _, err := c.LoadLandingData(context.Background()); KindOf(err) != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestSetNotificationEnabled(t *testing.T) {
	c, store := newController(t, &fakeGateway{})
	ctx := context.Background()
	if _, err := c.SetNotificationEnabled(ctx, true); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error without a session, got %v", err)
	}
	verified(t, c)

	p, err := c.SetNotificationEnabled(ctx, true)
	if err != nil || !p.NotificationEnabled {
		t.Fatalf("set notification: %+v %v", p, err)
	}
	stored, _, _ := store.PrimarySession(ctx)
	if !stored.NotificationEnabled || stored.UserToken != "T1" {
		t.Fatalf("unexpected stored session: %+v", stored)
	}
}

func TestTokensRequireVerified(t *testing.T) {
	c, _ := newController(t, &fakeGateway{})
	if _, ok := c.Tokens(); ok {
		t.Fatalf("anonymous session has no tokens")
	}
	if _, err := c.Login(context.Background(), "9876543210", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, ok := c.Tokens(); ok {
		t.Fatalf("authenticated session has no complete token pair")
	}
	if _, err := c.ValidateMpin(context.Background(), "1234"); err != nil {
		t.Fatalf("validate mpin: %v", err)
	}
	if tk, ok := c.Tokens(); !ok || tk.UserToken != "T1" || tk.PinToken != "P1" {
		t.Fatalf("unexpected tokens %+v ok=%v", tk, ok)
	}
}
