package portalauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campusworks/portalauth/gateway"
)

type fakeGateway struct {
	loginSession  *gateway.Session
	loginErr      error
	loginCalls    int
	validateOK    bool
	validateCalls int
	updateResult  *gateway.ProfileUpdateResult
	updateErr     error
	updateCalls   int
	changeErr     error
	changeCalls   int
	resetErr      error
	resetCalls    int
	resetEmails   []string
	revokeErr     error
	revokeCalls   int
}

func (f *fakeGateway) Login(ctx context.Context, email, password string) (*gateway.Session, error) {
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginSession, nil
}

func (f *fakeGateway) Validate(ctx context.Context, credential string) bool {
	f.validateCalls++
	return f.validateOK
}

func (f *fakeGateway) UpdateProfile(ctx context.Context, credential string, patch gateway.ProfilePatch) (*gateway.ProfileUpdateResult, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateResult, nil
}

func (f *fakeGateway) ChangePassword(ctx context.Context, credential, oldPassword, newPassword, confirmPassword string) error {
	f.changeCalls++
	return f.changeErr
}

func (f *fakeGateway) ResetPassword(ctx context.Context, email, newPassword string) error {
	f.resetCalls++
	f.resetEmails = append(f.resetEmails, email)
	return f.resetErr
}

func (f *fakeGateway) Revoke(ctx context.Context, credential string) error {
	f.revokeCalls++
	return f.revokeErr
}

type fakeStorage struct {
	credential string
	profile    *gateway.Profile
	loadErr    error
	saveErr    error
	clearErr   error

	saves  int
	clears int
}

func (f *fakeStorage) Save(ctx context.Context, credential string, profile gateway.Profile) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.credential = credential
	f.profile = &profile
	return nil
}

func (f *fakeStorage) Load(ctx context.Context) (string, *gateway.Profile, error) {
	if f.loadErr != nil {
		return "", nil, f.loadErr
	}
	return f.credential, f.profile, nil
}

func (f *fakeStorage) Clear(ctx context.Context) error {
	f.clears++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.credential = ""
	f.profile = nil
	return nil
}

func mintCredential(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   "2019110099",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("signing test credential: %v", err)
	}
	return signed
}

func testProfile() gateway.Profile {
	return gateway.Profile{
		Name:        "Maria Quispe",
		Email:       "maria.quispe@unica.edu.pe",
		Role:        "student",
		StudentCode: "2019110099",
	}
}

func newTestController(gw Gateway, storage sessionStorage) (*SessionController, *Metrics) {
	metrics := NewMetrics(MetricsConfig{Enabled: true})
	c := newSessionController(gw, storage, SessionConfig{}, nil, metrics)
	return c, metrics
}

func TestRestoreEmptyStore(t *testing.T) {
	gw := &fakeGateway{}
	c, _ := newTestController(gw, &fakeStorage{})

	if got := c.Restore(context.Background()); got != StateAbsent {
		t.Fatalf("state = %v, want %v", got, StateAbsent)
	}
	if gw.validateCalls != 0 {
		t.Fatalf("validate calls = %d, want 0", gw.validateCalls)
	}
	if _, ok := c.Current(); ok {
		t.Fatal("expected no current session")
	}
}

func TestRestoreExpiredCredentialNeverTouchesNetwork(t *testing.T) {
	profile := testProfile()
	storage := &fakeStorage{
		credential: mintCredential(t, time.Now().Add(-time.Hour)),
		profile:    &profile,
	}
	gw := &fakeGateway{validateOK: true}
	c, metrics := newTestController(gw, storage)

	if got := c.Restore(context.Background()); got != StateAbsent {
		t.Fatalf("state = %v, want %v", got, StateAbsent)
	}
	if gw.validateCalls != 0 {
		t.Fatalf("validate calls = %d, want 0", gw.validateCalls)
	}
	if storage.clears != 1 {
		t.Fatalf("storage clears = %d, want 1", storage.clears)
	}
	if metrics.Value(MetricRestoreLocalExpiry) != 1 {
		t.Fatalf("local expiry counter = %d, want 1", metrics.Value(MetricRestoreLocalExpiry))
	}
}

func TestRestoreRejectedByProvider(t *testing.T) {
	profile := testProfile()
	storage := &fakeStorage{
		credential: mintCredential(t, time.Now().Add(time.Hour)),
		profile:    &profile,
	}
	gw := &fakeGateway{validateOK: false}
	c, metrics := newTestController(gw, storage)

	if got := c.Restore(context.Background()); got != StateAbsent {
		t.Fatalf("state = %v, want %v", got, StateAbsent)
	}
	if gw.validateCalls != 1 {
		t.Fatalf("validate calls = %d, want 1", gw.validateCalls)
	}
	if storage.clears != 1 {
		t.Fatalf("storage clears = %d, want 1", storage.clears)
	}
	if metrics.Value(MetricValidateRejected) != 1 {
		t.Fatalf("rejected counter = %d, want 1", metrics.Value(MetricValidateRejected))
	}
}

func TestRestoreActive(t *testing.T) {
	profile := testProfile()
	credential := mintCredential(t, time.Now().Add(time.Hour))
	storage := &fakeStorage{credential: credential, profile: &profile}
	gw := &fakeGateway{validateOK: true}
	c, _ := newTestController(gw, storage)

	if got := c.Restore(context.Background()); got != StateActive {
		t.Fatalf("state = %v, want %v", got, StateActive)
	}

	current, ok := c.Current()
	if !ok {
		t.Fatal("expected a current session")
	}
	if current.Credential != credential {
		t.Fatal("restored credential does not match stored credential")
	}
	if current.Profile.Email != profile.Email {
		t.Fatalf("restored email = %q, want %q", current.Profile.Email, profile.Email)
	}
}

func TestRestoreStoreFailureResolvesAbsent(t *testing.T) {
	storage := &fakeStorage{loadErr: errors.New("redis gone")}
	gw := &fakeGateway{validateOK: true}
	c, _ := newTestController(gw, storage)

	if got := c.Restore(context.Background()); got != StateAbsent {
		t.Fatalf("state = %v, want %v", got, StateAbsent)
	}
	if gw.validateCalls != 0 {
		t.Fatalf("validate calls = %d, want 0", gw.validateCalls)
	}
}

func TestLoginSuccessPersists(t *testing.T) {
	profile := testProfile()
	credential := mintCredential(t, time.Now().Add(time.Hour))
	gw := &fakeGateway{loginSession: &gateway.Session{Credential: credential, Profile: profile}}
	storage := &fakeStorage{}
	c, metrics := newTestController(gw, storage)

	session, err := c.Login(context.Background(), profile.Email, "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.Credential != credential {
		t.Fatal("returned session credential does not match provider credential")
	}
	if c.State() != StateActive {
		t.Fatalf("state = %v, want %v", c.State(), StateActive)
	}
	if storage.credential != credential {
		t.Fatal("credential was not persisted")
	}
	if metrics.Value(MetricLoginSuccess) != 1 {
		t.Fatalf("login success counter = %d, want 1", metrics.Value(MetricLoginSuccess))
	}
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	authErr := &gateway.AuthError{Message: "usuario o contraseña incorrectos", HTTPStatus: 401}
	gw := &fakeGateway{loginErr: authErr}
	storage := &fakeStorage{}
	c, metrics := newTestController(gw, storage)

	_, err := c.Login(context.Background(), "maria.quispe@unica.edu.pe", "wrong")
	if err == nil {
		t.Fatal("expected login to fail")
	}
	var got *gateway.AuthError
	if !errors.As(err, &got) || got.Message != authErr.Message {
		t.Fatalf("provider error was not propagated unchanged: %v", err)
	}
	if c.State() != StateUninitialized {
		t.Fatalf("state = %v, want %v", c.State(), StateUninitialized)
	}
	if storage.saves != 0 {
		t.Fatalf("storage saves = %d, want 0", storage.saves)
	}
	if metrics.Value(MetricLoginFailure) != 1 {
		t.Fatalf("login failure counter = %d, want 1", metrics.Value(MetricLoginFailure))
	}
}

func TestLoginSurvivesSaveFailure(t *testing.T) {
	profile := testProfile()
	credential := mintCredential(t, time.Now().Add(time.Hour))
	gw := &fakeGateway{loginSession: &gateway.Session{Credential: credential, Profile: profile}}
	storage := &fakeStorage{saveErr: errors.New("redis gone")}
	c, metrics := newTestController(gw, storage)

	if _, err := c.Login(context.Background(), profile.Email, "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.State() != StateActive {
		t.Fatalf("state = %v, want %v", c.State(), StateActive)
	}
	if metrics.Value(MetricStoreWriteFailure) != 1 {
		t.Fatalf("store write failure counter = %d, want 1", metrics.Value(MetricStoreWriteFailure))
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	profile := testProfile()
	credential := mintCredential(t, time.Now().Add(time.Hour))
	gw := &fakeGateway{loginSession: &gateway.Session{Credential: credential, Profile: profile}}
	storage := &fakeStorage{}
	c, _ := newTestController(gw, storage)

	if _, err := c.Login(context.Background(), profile.Email, "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if c.State() != StateAbsent {
		t.Fatalf("state = %v, want %v", c.State(), StateAbsent)
	}
	if _, ok := c.Current(); ok {
		t.Fatal("session survived logout")
	}
	if storage.clears != 1 {
		t.Fatalf("storage clears = %d, want 1", storage.clears)
	}
	if gw.revokeCalls != 0 {
		t.Fatalf("revoke calls = %d, want 0 with revocation disabled", gw.revokeCalls)
	}
}

func TestLogoutRevokesWhenConfigured(t *testing.T) {
	profile := testProfile()
	credential := mintCredential(t, time.Now().Add(time.Hour))
	gw := &fakeGateway{loginSession: &gateway.Session{Credential: credential, Profile: profile}}
	storage := &fakeStorage{}
	metrics := NewMetrics(MetricsConfig{Enabled: true})
	c := newSessionController(gw, storage, SessionConfig{RevokeOnLogout: true}, nil, metrics)

	if _, err := c.Login(context.Background(), profile.Email, "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	gw.revokeErr = errors.New("provider down")
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: revocation failure must not block local logout, got %v", err)
	}
	if gw.revokeCalls != 1 {
		t.Fatalf("revoke calls = %d, want 1", gw.revokeCalls)
	}
	if c.State() != StateAbsent {
		t.Fatalf("state = %v, want %v", c.State(), StateAbsent)
	}
}

func TestUpdateProfileRequiresActiveSession(t *testing.T) {
	c, _ := newTestController(&fakeGateway{}, &fakeStorage{})

	name := "New Name"
	_, err := c.UpdateProfile(context.Background(), ProfilePatch{Name: &name})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestUpdateProfileMergesAcceptedFieldsOnly(t *testing.T) {
	profile := testProfile()
	credential := mintCredential(t, time.Now().Add(time.Hour))
	name := "Maria Elena Quispe"
	phone := "956112233"
	gw := &fakeGateway{
		loginSession: &gateway.Session{Credential: credential, Profile: profile},
		updateResult: &gateway.ProfileUpdateResult{
			Message:  "perfil actualizado",
			Accepted: gateway.ProfilePatch{Name: &name},
		},
	}
	storage := &fakeStorage{}
	c, _ := newTestController(gw, storage)

	if _, err := c.Login(context.Background(), profile.Email, "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	merged, err := c.UpdateProfile(context.Background(), ProfilePatch{Name: &name, Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if merged.Name != name {
		t.Fatalf("merged name = %q, want %q", merged.Name, name)
	}
	if merged.Phone != profile.Phone {
		t.Fatalf("phone changed to %q without provider acceptance", merged.Phone)
	}
	if merged.Role != profile.Role {
		t.Fatal("role must never change within a session")
	}
	if storage.profile == nil || storage.profile.Name != name {
		t.Fatal("merged profile was not persisted")
	}
}

func TestUpdateProfileEmptyPatchSkipsNetwork(t *testing.T) {
	profile := testProfile()
	credential := mintCredential(t, time.Now().Add(time.Hour))
	gw := &fakeGateway{loginSession: &gateway.Session{Credential: credential, Profile: profile}}
	c, _ := newTestController(gw, &fakeStorage{})

	if _, err := c.Login(context.Background(), profile.Email, "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	got, err := c.UpdateProfile(context.Background(), ProfilePatch{})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Name != profile.Name {
		t.Fatal("empty patch must return the current profile unchanged")
	}
	if gw.updateCalls != 0 {
		t.Fatalf("update calls = %d, want 0", gw.updateCalls)
	}
}

func TestChangePasswordMismatchFailsBeforeNetwork(t *testing.T) {
	gw := &fakeGateway{}
	c, metrics := newTestController(gw, &fakeStorage{})

	err := c.ChangePassword(context.Background(), "old", "newpass", "different")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("err = %v, want ErrPasswordMismatch", err)
	}
	if gw.changeCalls != 0 {
		t.Fatalf("change calls = %d, want 0", gw.changeCalls)
	}
	if metrics.Value(MetricPasswordChangeMismatch) != 1 {
		t.Fatalf("mismatch counter = %d, want 1", metrics.Value(MetricPasswordChangeMismatch))
	}
}

func TestChangePasswordRequiresActiveSession(t *testing.T) {
	c, _ := newTestController(&fakeGateway{}, &fakeStorage{})

	err := c.ChangePassword(context.Background(), "old", "newpass", "newpass")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestNearExpiry(t *testing.T) {
	profile := testProfile()
	now := time.Now()
	credential := mintCredential(t, now.Add(2*time.Minute))
	gw := &fakeGateway{loginSession: &gateway.Session{Credential: credential, Profile: profile}}
	c, _ := newTestController(gw, &fakeStorage{})

	if c.NearExpiry(now) {
		t.Fatal("absent session must never be near expiry")
	}

	if _, err := c.Login(context.Background(), profile.Email, "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !c.NearExpiry(now) {
		t.Fatal("credential 2m from expiry inside a 5m window must read near expiry")
	}
	if c.NearExpiry(now.Add(-10 * time.Minute)) {
		t.Fatal("credential 12m from expiry must not read near expiry")
	}
}
