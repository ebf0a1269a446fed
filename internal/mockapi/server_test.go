package mockapi

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/five82/rollcall/internal/api"
	"github.com/five82/rollcall/internal/period"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newClient(t *testing.T, opts Options) (*api.Client, *Server) {
	t.Helper()
	srv := New(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := api.NewClient(ts.URL, ts.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c, srv
}

func TestSignInAndFetch(t *testing.T) {
	clock := period.NewManualClock(time.Date(2025, 7, 1, 9, 30, 0, 0, time.Local))
	c, _ := newClient(t, Options{Clock: clock})
	ctx := context.Background()

	if _, err := c.FetchPeriods(ctx); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("FetchPeriods without token err = %v, want ErrUnauthorized", err)
	}

	if _, err := c.Login(ctx, "john", "wrong"); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("Login with bad password err = %v, want ErrUnauthorized", err)
	}
	res, err := c.Login(ctx, "john", "password")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.User.Name != "John Doe" || c.Token() == "" {
		t.Fatalf("Login = %+v", res)
	}
	exp, ok := c.TokenExpiry()
	if !ok || !exp.Equal(clock.Now().Add(24*time.Hour)) {
		t.Fatalf("token expiry = %v ok=%v", exp, ok)
	}

	periods, err := c.FetchPeriods(ctx)
	if err != nil {
		t.Fatalf("FetchPeriods returned error: %v", err)
	}
	if len(periods) != len(DefaultPeriods()) || !periods[3].Break {
		t.Fatalf("periods = %+v", periods)
	}

	health, err := c.FaceHealth(ctx)
	if err != nil || health.KnownFaces != len(DefaultUsers()) {
		t.Fatalf("FaceHealth = %+v, %v", health, err)
	}
}

func TestMark_DuplicateAndMismatch(t *testing.T) {
	clock := period.NewManualClock(time.Date(2025, 7, 1, 9, 30, 0, 0, time.Local))
	c, _ := newClient(t, Options{
		Clock:      clock,
		Recognizer: func(_, image string) bool { return image != "stranger" },
	})
	ctx := context.Background()
	if _, err := c.Login(ctx, "jane", "password"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	_, err := c.MarkAttendance(ctx, api.MarkRequest{Image: "stranger", PeriodID: 1})
	if api.MessageOf(err) != "Face recognized does not match" {
		t.Fatalf("mismatch err = %v", err)
	}

	resp, err := c.MarkAttendance(ctx, api.MarkRequest{Image: "jane", PeriodID: 1})
	if err != nil || !resp.Success || resp.Data == nil || resp.Data.ID == "" {
		t.Fatalf("first mark = %+v, %v", resp, err)
	}

	resp, err = c.MarkAttendance(ctx, api.MarkRequest{Image: "jane", PeriodID: 1})
	if err != nil {
		t.Fatalf("duplicate mark returned error: %v", err)
	}
	if resp.Success || resp.Message != "Attendance already marked for this period" {
		t.Fatalf("duplicate mark = %+v", resp)
	}

	_, err = c.MarkAttendance(ctx, api.MarkRequest{Image: "jane", PeriodID: 4})
	if api.MessageOf(err) != "Attendance is not taken during a break" {
		t.Fatalf("break mark err = %v", err)
	}

	records, err := c.FetchToday(ctx)
	if err != nil || len(records) != 1 || records[0].PeriodID != 1 {
		t.Fatalf("FetchToday = %+v, %v", records, err)
	}

	stats, err := c.FetchStats(ctx, api.StatsQuery{Start: clock.Now(), End: clock.Now()})
	if err != nil {
		t.Fatalf("FetchStats returned error: %v", err)
	}
	if stats.TotalDays != 1 || stats.PresentDays != 1 || len(stats.AttendanceList) != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestExpiredTokenIsUnauthorized(t *testing.T) {
	clock := period.NewManualClock(time.Date(2025, 7, 1, 9, 30, 0, 0, time.Local))
	c, srv := newClient(t, Options{Clock: clock, TokenTTL: time.Hour})

	token, err := srv.IssueToken("1")
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	c.SetToken(token)
	clock.Advance(2 * time.Hour)

	_, err = c.FetchToday(context.Background())
	if !errors.Is(err, api.ErrUnauthorized) || api.MessageOf(err) != "Token expired" {
		t.Fatalf("err = %v, want expired unauthorized", err)
	}
}

func TestSeed(t *testing.T) {
	clock := period.NewManualClock(time.Date(2025, 7, 1, 9, 30, 0, 0, time.Local))
	c, srv := newClient(t, Options{Clock: clock})
	if err := srv.Seed("1", 2, "late", clock.Now()); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if err := srv.Seed("1", 99, "present", clock.Now()); err == nil {
		t.Fatal("Seed accepted an unknown period")
	}
	if _, err := c.Login(context.Background(), "john", "password"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	records, err := c.FetchToday(context.Background())
	if err != nil || len(records) != 1 || records[0].Status != "LATE" {
		t.Fatalf("FetchToday = %+v, %v", records, err)
	}
}
