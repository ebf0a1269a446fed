package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/rollcall/internal/api"
	"github.com/five82/rollcall/internal/period"
)

// User is a demo account.
type User struct {
	ID       string
	Username string
	Password string
	Name     string
	Email    string
}

// Recognizer decides whether a submitted image belongs to userID.
type Recognizer func(userID, image string) bool

// Options configures the demo backend. Zero values fall back to the demo
// timetable and accounts.
type Options struct {
	Secret     []byte
	Users      []User
	Periods    []api.PeriodDTO
	Clock      period.Clock
	Recognizer Recognizer
	TokenTTL   time.Duration
	Logger     *zap.Logger
}

// DefaultUsers are the accounts the demo backend accepts.
func DefaultUsers() []User {
	return []User{
		{ID: "1", Username: "john", Password: "password", Name: "John Doe", Email: "john@example.com"},
		{ID: "2", Username: "jane", Password: "password", Name: "Jane Smith", Email: "jane@example.com"},
	}
}

// DefaultPeriods is the demo timetable.
func DefaultPeriods() []api.PeriodDTO {
	day := []period.Period{
		{ID: 1, Number: 1, Name: "Period 1", Start: period.MustTimeOfDay("09:00"), End: period.MustTimeOfDay("10:00")},
		{ID: 2, Number: 2, Name: "Period 2", Start: period.MustTimeOfDay("10:15"), End: period.MustTimeOfDay("11:15")},
		{ID: 3, Number: 3, Name: "Period 3", Start: period.MustTimeOfDay("11:30"), End: period.MustTimeOfDay("12:30")},
		{ID: 4, Number: 4, Name: "Lunch", Start: period.MustTimeOfDay("12:30"), End: period.MustTimeOfDay("13:30"), Break: true},
		{ID: 5, Number: 5, Name: "Period 4", Start: period.MustTimeOfDay("13:30"), End: period.MustTimeOfDay("14:30")},
	}
	dtos := make([]api.PeriodDTO, 0, len(day))
	for _, p := range day {
		dtos = append(dtos, api.FromPeriod(p))
	}
	return dtos
}

const maxStatsDays = 366

type markKey struct {
	date     string
	userID   string
	periodID int64
}

// Server is an in-memory attendance backend.
type Server struct {
	secret     []byte
	users      []User
	periods    []api.PeriodDTO
	clock      period.Clock
	recognizer Recognizer
	ttl        time.Duration
	log        *zap.Logger
	engine     *gin.Engine

	mu    sync.Mutex
	marks map[markKey]api.RecordDTO
}

// New builds the backend and its routes.
func New(opts Options) *Server {
	s := &Server{
		secret:     opts.Secret,
		users:      opts.Users,
		periods:    opts.Periods,
		clock:      opts.Clock,
		recognizer: opts.Recognizer,
		ttl:        opts.TokenTTL,
		log:        opts.Logger,
		marks:      make(map[markKey]api.RecordDTO),
	}
	if len(s.secret) == 0 {
		s.secret = []byte("rollcall-demo-secret")
	}
	if s.users == nil {
		s.users = DefaultUsers()
	}
	if s.periods == nil {
		s.periods = DefaultPeriods()
	}
	if s.clock == nil {
		s.clock = period.SystemClock{}
	}
	if s.recognizer == nil {
		s.recognizer = func(string, string) bool { return true }
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.POST("/api/auth/signin", s.signIn)
	r.GET("/health", s.health)

	attendance := r.Group("/api/attendance", s.authRequired())
	attendance.GET("/periods", s.listPeriods)
	attendance.GET("/today", s.today)
	attendance.POST("/mark", s.mark)
	attendance.GET("/stats", s.stats)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// IssueToken signs an access token for userID.
func (s *Server) IssueToken(userID string) (string, error) {
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	return token.SignedString(s.secret)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization header is required"})
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		}, jwt.WithTimeFunc(s.clock.Now))
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
			return
		}
		c.Set("userID", claims.Subject)
		c.Next()
	}
}

func (s *Server) signIn(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username and password are required"})
		return
	}
	for _, u := range s.users {
		if !strings.EqualFold(u.Username, req.Username) || u.Password != req.Password {
			continue
		}
		token, err := s.IssueToken(u.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Could not issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": api.LoginResult{
			AccessToken: token,
			User: api.User{
				ID:             u.ID,
				Name:           u.Name,
				Username:       u.Username,
				Email:          u.Email,
				Roles:          []string{"student"},
				FaceRegistered: true,
			},
		}})
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, api.FaceHealth{Status: "ok", KnownFaces: len(s.users)})
}

func (s *Server) listPeriods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.periods})
}

func (s *Server) today(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.recordsFor(c.GetString("userID"), s.clock.Now())})
}

func (s *Server) mark(c *gin.Context) {
	var req api.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Image and periodId are required"})
		return
	}
	p, ok := s.findPeriod(req.PeriodID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Period not found"})
		return
	}
	if p.Break {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Attendance is not taken during a break"})
		return
	}

	userID := c.GetString("userID")
	now := s.clock.Now()
	key := markKey{date: now.Format(time.DateOnly), userID: userID, periodID: p.ID}

	s.mu.Lock()
	_, dup := s.marks[key]
	s.mu.Unlock()
	if dup {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Attendance already marked for this period"})
		return
	}
	if !s.recognizer(userID, req.Image) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Face recognized does not match"})
		return
	}

	rec := api.RecordDTO{
		ID:           uuid.NewString(),
		PeriodID:     p.ID,
		PeriodNumber: p.PeriodNumber,
		Status:       "PRESENT",
		MarkedAt:     now.Format(time.RFC3339),
	}
	s.mu.Lock()
	if _, raced := s.marks[key]; raced {
		s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Attendance already marked for this period"})
		return
	}
	s.marks[key] = rec
	s.mu.Unlock()

	s.log.Info("attendance marked", zap.String("user_id", userID), zap.Int64("period_id", p.ID))
	c.JSON(http.StatusOK, api.MarkResponse{
		Success: true,
		Message: "Attendance marked successfully",
		Data: &api.MarkData{
			ID:       rec.ID,
			PeriodID: rec.PeriodID,
			Status:   rec.Status,
			MarkedAt: rec.MarkedAt,
		},
	})
}

func (s *Server) stats(c *gin.Context) {
	userID := c.GetString("userID")
	now := s.clock.Now()
	start, end := now, now
	if v := c.Query("startDate"); v != "" {
		if t, err := time.ParseInLocation(time.DateOnly, v, now.Location()); err == nil {
			start = t
		}
	}
	if v := c.Query("endDate"); v != "" {
		if t, err := time.ParseInLocation(time.DateOnly, v, now.Location()); err == nil {
			end = t
		}
	}

	var out api.Stats
	out.AttendanceList = []api.StatsEntry{}
	last := dateOnly(end)
	for day, n := dateOnly(start), 0; !day.After(last) && n < maxStatsDays; day, n = day.AddDate(0, 0, 1), n+1 {
		records := s.recordsFor(userID, day)
		if len(records) > 0 {
			out.PresentDays++
		} else {
			out.AbsentDays++
		}
		out.TotalDays++
		for _, rec := range records {
			out.AttendanceList = append(out.AttendanceList, api.StatsEntry{
				Date:         day.Format(time.DateOnly),
				PeriodNumber: rec.PeriodNumber,
				Status:       rec.Status,
			})
		}
	}
	if out.TotalDays > 0 {
		out.AttendancePercentage = float64(out.PresentDays) * 100 / float64(out.TotalDays)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

func (s *Server) recordsFor(userID string, day time.Time) []api.RecordDTO {
	date := day.Format(time.DateOnly)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.RecordDTO{}
	for _, p := range s.periods {
		if rec, ok := s.marks[markKey{date: date, userID: userID, periodID: p.ID}]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Server) findPeriod(id int64) (api.PeriodDTO, bool) {
	for _, p := range s.periods {
		if p.ID == id {
			return p, true
		}
	}
	return api.PeriodDTO{}, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Seed records a mark directly, as if userID had marked periodID at at.
func (s *Server) Seed(userID string, periodID int64, status string, at time.Time) error {
	p, ok := s.findPeriod(periodID)
	if !ok {
		return fmt.Errorf("seed: unknown period %d", periodID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[markKey{date: at.Format(time.DateOnly), userID: userID, periodID: periodID}] = api.RecordDTO{
		ID:           uuid.NewString(),
		PeriodID:     periodID,
		PeriodNumber: p.PeriodNumber,
		Status:       strings.ToUpper(status),
		MarkedAt:     at.Format(time.RFC3339),
	}
	return nil
}
